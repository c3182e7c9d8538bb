package pipeline

const (
	// DefaultCacheFile 前序作业下载的构建号产物，存在即复用
	DefaultCacheFile = "BUILD_NUMBER/BUILD_NUMBER"
	// DefaultResultFile 分配成功后写出的构建号文件，供后续作业上传/下载
	DefaultResultFile = "BUILD_NUMBER"
)

// Paths 流水线相关的本地文件路径
type Paths struct {
	// CacheFile 缓存的构建号文件
	CacheFile string `json:"cacheFile"`
	// ResultFile 新分配构建号的输出文件
	ResultFile string `json:"resultFile"`
	// EnvFile 环境变量传播文件（$GITHUB_ENV）
	EnvFile string `json:"envFile"`
	// OutputFile 步骤输出文件（$GITHUB_OUTPUT）
	OutputFile string `json:"outputFile"`
}

// GetDefaultPaths 返回默认路径；EnvFile 与 OutputFile 由运行环境提供，默认为空
func GetDefaultPaths() *Paths {
	return &Paths{
		CacheFile:  DefaultCacheFile,
		ResultFile: DefaultResultFile,
	}
}
