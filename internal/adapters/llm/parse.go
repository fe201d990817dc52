package llm

import (
	"strings"

	"github.com/target/codegen-api/internal/domain/model"
)

const codeFence = "```"

var fenceExtensions = map[string]string{
	"typescript": ".ts",
	"tsx":        ".tsx",
	"javascript": ".js",
	"jsx":        ".jsx",
	"sql":        ".sql",
	"yaml":       ".yml",
	"python":     ".py",
	"go":         ".go",
}

// parseCodeBlocks extracts fenced code blocks from a completion.
// The first line of each block is its language tag; text outside fences is ignored.
func parseCodeBlocks(content string, target model.Target) []model.GeneratedFile {
	parts := strings.Split(content, codeFence)
	files := make([]model.GeneratedFile, 0, len(parts)/2)

	for i := 1; i < len(parts); i += 2 {
		header, code, _ := strings.Cut(parts[i], "\n")
		language := strings.ToLower(strings.TrimSpace(header))
		files = append(files, model.GeneratedFile{
			Path:     inferFilePath(language, target),
			Content:  code,
			Language: language,
		})
	}
	return files
}

// inferFilePath names a file from its fence language and the job target.
func inferFilePath(language string, target model.Target) string {
	ext, ok := fenceExtensions[language]
	if !ok {
		ext = ".txt"
	}

	switch target {
	case model.TargetFrontend:
		return "src/component" + ext
	case model.TargetBackend:
		return "api/handler" + ext
	case model.TargetSQL:
		return "schema" + ext
	case model.TargetInfra:
		return "docker-compose" + ext
	default:
		return "generated" + ext
	}
}
