package cli

import (
	"sort"
	"strings"
)

// 支持的命令行参数
const (
	flagPrompt      = "prompt"
	flagPromptFile  = "prompt-file"
	flagModel       = "model"
	flagSize        = "size"
	flagAspectRatio = "aspect-ratio"
	flagInputImage  = "input-image"
	flagOutput      = "output"
	flagUpload      = "upload"
	flagNoHomeEnv   = "no-home-env"
	flagHelp        = "help"
)

var knownFlags = map[string]bool{
	flagPrompt:      true,
	flagPromptFile:  true,
	flagModel:       true,
	flagSize:        true,
	flagAspectRatio: true,
	flagInputImage:  true,
	flagOutput:      true,
	flagUpload:      true,
	flagNoHomeEnv:   true,
	flagHelp:        true,
}

// Args 扁平的参数表：名称 -> 字符串值或布尔值
type Args struct {
	values map[string]string
	bools  map[string]bool
	// Unknown 无法识别的参数名，收集后忽略
	Unknown []string
	// Positional 不以 -- 开头的多余参数
	Positional []string
}

// ParseArgs 解析 --name value / --name=value 形式的参数。
// 参数后面紧跟另一个 --flag（或已到末尾）时视为布尔值 true。
func ParseArgs(argv []string) *Args {
	args := &Args{
		values: make(map[string]string),
		bools:  make(map[string]bool),
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if !isFlagToken(arg) {
			args.Positional = append(args.Positional, arg)
			continue
		}

		name := strings.TrimPrefix(arg, "--")
		if key, value, ok := strings.Cut(name, "="); ok {
			name = key
			args.values[name] = value
		} else if i+1 < len(argv) && !isFlagToken(argv[i+1]) {
			args.values[name] = argv[i+1]
			i++
		} else {
			args.bools[name] = true
		}

		if !knownFlags[name] {
			args.Unknown = append(args.Unknown, name)
		}
	}

	sort.Strings(args.Unknown)
	return args
}

func isFlagToken(s string) bool {
	return strings.HasPrefix(s, "--") && len(s) > 2
}

// String 返回字符串参数值；未设置或只作为布尔开关出现时返回空串
func (a *Args) String(name string) string {
	return a.values[name]
}

// Bool 布尔开关；--name=false / --name=0 视为 false
func (a *Args) Bool(name string) bool {
	if a.bools[name] {
		return true
	}
	switch strings.ToLower(a.values[name]) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// Has 参数是否出现过（无论字符串还是布尔形式）
func (a *Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok || a.bools[name]
}

// Params 一次调用的全部输入
type Params struct {
	Prompt      PromptSource // nil 表示没有提供提示词
	Model       string
	Size        string
	AspectRatio string
	InputImage  string
	Output      string
	Upload      bool
	NoHomeEnv   bool
	Help        bool
	Unknown     []string
}

// ParamsFromArgs 把扁平参数表转换为调用参数。
// 同时提供 --prompt-file 和 --prompt 时以 --prompt-file 为准。
func ParamsFromArgs(args *Args) Params {
	p := Params{
		Model:       args.String(flagModel),
		Size:        args.String(flagSize),
		AspectRatio: args.String(flagAspectRatio),
		InputImage:  args.String(flagInputImage),
		Output:      args.String(flagOutput),
		Upload:      args.Bool(flagUpload),
		NoHomeEnv:   args.Bool(flagNoHomeEnv),
		Help:        args.Bool(flagHelp),
		Unknown:     args.Unknown,
	}

	if path := args.String(flagPromptFile); path != "" {
		p.Prompt = FilePrompt{Path: path}
	} else if text := args.String(flagPrompt); text != "" {
		p.Prompt = LiteralPrompt(text)
	}
	return p
}
