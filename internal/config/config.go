package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// envPrefix 环境变量前缀
const envPrefix = "MILLSCOPE"

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Data     DataConfig     `toml:"data"`
	Workbook WorkbookConfig `toml:"workbook"`
	Analysis AnalysisConfig `toml:"analysis"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir    string `toml:"data_dir"`
	AutoBackup bool   `toml:"auto_backup"`
}

// WorkbookConfig 工作簿导入配置
type WorkbookConfig struct {
	DefaultPath         string   `toml:"default_path" json:"defaultPath"`
	ExcludedEstates     []string `toml:"excluded_estates" json:"excludedEstates"`
	MappingHeaderOffset int      `toml:"mapping_header_offset" json:"mappingHeaderOffset"`
}

// AnalysisConfig 分析参数
type AnalysisConfig struct {
	TargetOER     float64 `toml:"target_oer" json:"targetOer"`
	RollingMonths int     `toml:"rolling_months" json:"rollingMonths"`
	PerformerRows int     `toml:"performer_rows" json:"performerRows"`
}

// envOverrides 环境变量覆盖项（MILLSCOPE_*）
type envOverrides struct {
	DefaultWorkbook string `envconfig:"DEFAULT_WORKBOOK"`
	Port            int    `envconfig:"PORT"`
	DataDir         string `envconfig:"DATA_DIR"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir:    "data",
			AutoBackup: true,
		},
		Workbook: WorkbookConfig{
			DefaultPath:         "",
			ExcludedEstates:     []string{"SNKM"},
			MappingHeaderOffset: 1,
		},
		Analysis: AnalysisConfig{
			TargetOER:     23,
			RollingMonths: 12,
			PerformerRows: 5,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func exeDirOrCwd() string {
	exeDir, err := GetExeDir()
	if err != nil || exeDir == "" {
		return "."
	}
	return exeDir
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	return LoadConfigFrom(filepath.Join(exeDirOrCwd(), "config.toml"))
}

// LoadConfigFrom 依次应用默认值、toml 文件与 MILLSCOPE_* 环境变量
func LoadConfigFrom(configPath string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: configPath}
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", configPath, err)
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return nil, info, fmt.Errorf("read environment: %w", err)
	}
	if env.DefaultWorkbook != "" {
		config.Workbook.DefaultPath = env.DefaultWorkbook
	}
	if env.Port > 0 {
		config.Server.Port = env.Port
		info.PortSpecified = true
	}
	if env.DataDir != "" {
		config.Data.DataDir = env.DataDir
	}

	config.normalize()
	return config, info, nil
}

// normalize 修正非法取值
func (c *AppConfig) normalize() {
	if c.Workbook.MappingHeaderOffset < 0 {
		c.Workbook.MappingHeaderOffset = 0
	}
	if c.Analysis.TargetOER <= 0 {
		c.Analysis.TargetOER = 23
	}
	if c.Analysis.RollingMonths <= 0 {
		c.Analysis.RollingMonths = 12
	}
	if c.Analysis.PerformerRows <= 0 {
		c.Analysis.PerformerRows = 5
	}
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig 保存配置到 configPath，为空时写入可执行文件同目录的 config.toml
func SaveConfig(config *AppConfig, configPath string) error {
	if configPath == "" {
		configPath = filepath.Join(exeDirOrCwd(), "config.toml")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// DataDirPath 返回数据目录绝对路径（相对路径以可执行文件目录为基准）
func DataDirPath(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	return filepath.Join(exeDirOrCwd(), config.Data.DataDir)
}

// EnsureDataDir 确保数据目录及 uploads / exports / backups 子目录存在
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := DataDirPath(config)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	subdirs := []string{"uploads", "exports", "backups"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// GetDataPath 获取数据目录下的文件路径，filename 为空时返回子目录
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(DataDirPath(config), subdir, filename)
}
