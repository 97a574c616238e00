package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gemini-image/common"
	"gemini-image/internal/genai/gemini"
	"gemini-image/internal/oss"
	"gemini-image/internal/service"
	"gemini-image/internal/tools"

	"github.com/mark3labs/mcp-go/server"
)

const usage = `Usage:
  gemini-image --prompt "..." [options]
  gemini-image --prompt-file <path> [options]
  gemini-image mcp

Options:
  --prompt <text>          prompt text
  --prompt-file <path>     read the prompt from a file, then delete the file
  --model <id>             model identifier (default: gemini-3-pro-image-preview)
  --size <1K|2K|4K>        resolution, also accepts 1024/2048/4096 (default: 2K)
  --aspect-ratio <w:h>     aspect ratio (default: 1:1)
  --input-image <path>     image to edit (.png .jpg .jpeg .webp .gif)
  --output <path>          output file (default: generated-YYYYMMDD-HHMMSS.png)
  --upload                 also upload the result to object storage (OSS_* env)
  --no-home-env            do not fall back to ~/.env for GEMINI_API_KEY

On success the output path is the only line written to stdout.
`

// Runner 命令行入口，依赖可替换以便测试
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer

	LoadConfig   func(opts common.LoadOptions) (*common.Config, error)
	NewGenerator func(cfg *common.Config) (gemini.ImageGenerator, error)
	NewUploader  func(cfg *common.Config) (oss.OSSIface, error)
}

// NewRunner 使用真实依赖创建 Runner
func NewRunner(stdout, stderr io.Writer) *Runner {
	return &Runner{
		Stdout:     stdout,
		Stderr:     stderr,
		LoadConfig: common.LoadConfig,
		NewGenerator: func(cfg *common.Config) (gemini.ImageGenerator, error) {
			return gemini.NewGeminiClientFromConfig(cfg)
		},
		NewUploader: oss.NewOSSClientFromConfig,
	}
}

// Main 唯一把错误转换为退出码的地方：成功 0，任何失败 1
func Main(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	runner := NewRunner(stdout, stderr)

	var err error
	if len(argv) > 0 && argv[0] == "mcp" {
		err = runner.ServeMCP(ctx, argv[1:])
	} else {
		err = runner.Run(ctx, argv)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", describeError(err))
		return 1
	}
	return 0
}

// Run 解析参数并执行一次生成，成功时向 stdout 输出文件路径
func (r *Runner) Run(ctx context.Context, argv []string) error {
	params := ParamsFromArgs(ParseArgs(argv))
	if params.Help {
		fmt.Fprint(r.Stdout, usage)
		return nil
	}
	if params.Prompt == nil {
		return common.ErrMissingPrompt
	}

	svc, upload, err := r.newService(params.NoHomeEnv, params.Upload)
	if err != nil {
		return err
	}

	if len(params.Unknown) > 0 {
		common.Warnf("Ignoring unknown flags: --%s", strings.Join(params.Unknown, ", --"))
	}

	prompt, err := params.Prompt.Resolve()
	if err != nil {
		return err
	}

	outcome, err := svc.Generate(ctx, service.Job{
		Prompt:         prompt,
		InputImagePath: params.InputImage,
		Model:          params.Model,
		Size:           params.Size,
		AspectRatio:    params.AspectRatio,
		Output:         params.Output,
		Upload:         upload,
	})
	if err != nil {
		return err
	}

	if outcome.UploadURL != "" {
		fmt.Fprintf(r.Stderr, "Uploaded: %s\n", outcome.UploadURL)
	}
	fmt.Fprintln(r.Stdout, outcome.OutputPath)
	return nil
}

// ServeMCP 以 MCP stdio 服务的形式提供同样的生成能力
func (r *Runner) ServeMCP(ctx context.Context, argv []string) error {
	params := ParamsFromArgs(ParseArgs(argv))

	svc, _, err := r.newService(params.NoHomeEnv, false)
	if err != nil {
		return err
	}

	s := server.NewMCPServer(
		"Gemini Image",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	if err := tools.RegisterGeminiTools(s, svc); err != nil {
		return fmt.Errorf("failed to register Gemini tools: %w", err)
	}

	common.Infof("Serving MCP over stdio")
	return server.ServeStdio(s)
}

// newService 加载配置并组装 ImageService。
// --upload 或 GENAI_UPLOAD=true 时创建 OSS 客户端，配置缺失直接报错；返回值 upload 表示是否需要上传。
func (r *Runner) newService(noHomeEnv, wantUpload bool) (*service.ImageService, bool, error) {
	cfg, err := r.LoadConfig(common.LoadOptions{HomeFallback: !noHomeEnv})
	if err != nil {
		return nil, false, err
	}

	generator, err := r.NewGenerator(cfg)
	if err != nil {
		return nil, false, err
	}

	upload := wantUpload || cfg.UploadEnabled
	var uploader oss.OSSIface
	if upload {
		uploader, err = r.NewUploader(cfg)
		if err != nil {
			return nil, false, err
		}
	}

	return service.NewImageService(generator, uploader, cfg.OSSBucket), upload, nil
}

// describeError 为不同类别的错误补充提示
func describeError(err error) string {
	var refusal *gemini.RefusalError
	var validation *common.ValidationError
	switch {
	case errors.As(err, &refusal):
		return fmt.Sprintf("the model did not return an image. Response text:\n%s", refusal.Text)
	case errors.Is(err, gemini.ErrNoCandidates):
		return fmt.Sprintf("%v: the request may have been blocked, try rephrasing the prompt", err)
	case errors.As(err, &validation):
		return "invalid input, " + validation.Error()
	default:
		return err.Error()
	}
}
