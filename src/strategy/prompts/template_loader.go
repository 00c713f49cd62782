package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadTemplate 加载指定名称的 prompt 模板（decision / scoring）。
// 文件不存在时调用方回退到内置默认模板
func LoadTemplate(name string) (string, error) {
	templatePath := filepath.Join("strategy", "prompts", name+".tmpl")

	content, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to load template %s: %w", templatePath, err)
	}

	return string(content), nil
}

// ListTemplates 列出所有可用的自定义模板
func ListTemplates() ([]string, error) {
	promptsDir := filepath.Join("strategy", "prompts")

	entries, err := os.ReadDir(promptsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".tmpl") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".tmpl"))
		}
	}

	return names, nil
}
