package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	cfgpkg "orthoref/internal/config"
)

// loadDotEnv 读取简单的 .env 并注入进程环境。
// 跳过空行与 # 注释；支持 "export " 前缀；成对引号被剥离；已存在的变量不覆盖。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		key, val, ok := parseDotEnvLine(s.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

func parseDotEnvLine(line string) (key, val string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	key, val, ok = strings.Cut(line, "=")
	key, val = strings.TrimSpace(key), strings.TrimSpace(val)
	if !ok || key == "" {
		return "", "", false
	}
	if len(val) >= 2 {
		q := val[0]
		if (q == '\'' || q == '"') && val[len(val)-1] == q {
			val = val[1 : len(val)-1]
		}
	}
	return key, val, true
}

var dotEnvKeys = []string{
	cfgpkg.EnvConfigFile,
	"",
	cfgpkg.EnvPrefix + "CONCURRENCY",
	cfgpkg.EnvPrefix + "LOG_LEVEL",
	"",
	cfgpkg.EnvPrefix + "COMPONENTS_READER",
	cfgpkg.EnvPrefix + "COMPONENTS_SOURCE",
	cfgpkg.EnvPrefix + "COMPONENTS_SPLITTER",
	cfgpkg.EnvPrefix + "COMPONENTS_CLUSTERS",
	cfgpkg.EnvPrefix + "COMPONENTS_ENCODER",
	cfgpkg.EnvPrefix + "COMPONENTS_FORMATTER",
	cfgpkg.EnvPrefix + "COMPONENTS_REPORT",
	cfgpkg.EnvPrefix + "COMPONENTS_WRITER",
	"",
	cfgpkg.EnvPrefix + "SUMMARIZE_MODE",
	cfgpkg.EnvPrefix + "SUMMARIZE_ALIGNMENT",
	cfgpkg.EnvPrefix + "CNO_SCORE_CUTOFF",
	cfgpkg.EnvPrefix + "CNO_SEQ_OVERLAP",
	cfgpkg.EnvPrefix + "CNO_SEGMENT_COVERAGE",
}

// writeDotEnv 在 dir 下生成 .env 模板；已存在时跳过。
func writeDotEnv(dir string) error {
	var b strings.Builder
	b.WriteString("# orthoref .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > orthoref.yaml；空值表示未设置。\n\n")
	for _, k := range dotEnvKeys {
		if k == "" {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(k)
		b.WriteString("=\n")
	}
	f, err := os.OpenFile(filepath.Join(dir, ".env"), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
