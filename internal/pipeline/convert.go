package pipeline

import (
	"context"
	"fmt"
	"io"

	"orthoref/internal/diag"
	"orthoref/pkg/contract"
)

// ConvertSettings: clusters 转换的运行参数。
type ConvertSettings struct {
	Input  string
	Output contract.ArtifactID
}

// ConvertClusters 解析簇输入（不做物种划分）并以 Encoder 的格式写出。
// 返回写出的簇数量。
func ConvertClusters(ctx context.Context, comp Components, set ConvertSettings, logger *diag.Logger) (int, error) {
	logger = orNop(logger)
	if err := needComponents("reader", comp.Reader, "clusters", comp.Clusters, "encoder", comp.Encoder, "writer", comp.Writer); err != nil {
		return 0, err
	}
	if set.Output == "" {
		set.Output = contract.StdoutArtifact
	}
	var clusters []contract.Cluster
	err := comp.Reader.Iterate(ctx, []string{set.Input}, func(fileID contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		return stage(logger, "clusters", "parse", string(fileID), func() (int64, error) {
			cs, err := comp.Clusters.Parse(ctx, fileID, rc)
			if err != nil {
				return 0, fmt.Errorf("clusters: %w", err)
			}
			clusters = append(clusters, cs...)
			return int64(len(cs)), nil
		})
	})
	if err != nil {
		return 0, err
	}
	err = stage(logger, "clusters", "write", string(set.Output), func() (int64, error) {
		r, err := comp.Encoder.Encode(ctx, clusters)
		if err != nil {
			return 0, fmt.Errorf("encode: %w", err)
		}
		return int64(len(clusters)), comp.Writer.Write(ctx, set.Output, r)
	})
	if err != nil {
		return 0, err
	}
	diag.AddRecords("clusters", "converted", len(clusters))
	return len(clusters), nil
}
