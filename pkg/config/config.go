package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 面板应用配置
type Config struct {
	BackendURL     string // 后端 REST 地址，例如 http://localhost:8000
	PortfolioWSURL string // 实时组合推送地址，例如 ws://localhost:8000/ws/portfolio
	SolanaRPCURL   string // Solana RPC 节点地址

	Username string // 登录用户名（可选，留空则在面板内输入）
	Password string // 登录密码（仅支持环境变量，不写入配置文件）

	SecretStorePath string // 操作员钱包密钥库路径（badger）
	JournalPath     string // 本地交易日志数据库路径（sqlite）

	LogLevel   string // 日志级别
	LogFile    string // 日志文件路径
	LogConsole bool   // 日志同步输出到控制台（调试用，TUI 运行时会污染界面）
}

// ConfigFile 配置文件结构（用于 YAML 解析）
type ConfigFile struct {
	Backend struct {
		URL         string `yaml:"url"`
		PortfolioWS string `yaml:"portfolio_ws"`
	} `yaml:"backend"`
	Solana struct {
		RPCURL string `yaml:"rpc_url"`
	} `yaml:"solana"`
	Auth struct {
		Username string `yaml:"username"`
	} `yaml:"auth"`
	Store struct {
		SecretStorePath string `yaml:"secret_store_path"`
		JournalPath     string `yaml:"journal_path"`
	} `yaml:"store"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

var configFilePath string

// SetConfigPath 设置配置文件路径
func SetConfigPath(path string) {
	configFilePath = path
}

// Load 加载配置（优先级：环境变量 > 配置文件 > 默认值）
func Load() (*Config, error) {
	return LoadFromFile(configFilePath)
}

// LoadFromFile 从指定文件加载配置
func LoadFromFile(filePath string) (*Config, error) {
	// .env 文件是可选的，加载失败不视为错误
	_ = godotenv.Load()

	var file *ConfigFile
	if filePath != "" {
		var err error
		file, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	}

	cfg := &Config{
		BackendURL:      pick(os.Getenv("GOPANEL_BACKEND_URL"), fileBackendURL(file), "http://localhost:8000"),
		PortfolioWSURL:  pick(os.Getenv("GOPANEL_PORTFOLIO_WS_URL"), filePortfolioWS(file), ""),
		SolanaRPCURL:    pick(os.Getenv("GOPANEL_SOLANA_RPC_URL"), fileRPCURL(file), "https://api.devnet.solana.com"),
		Username:        pick(os.Getenv("GOPANEL_USERNAME"), fileUsername(file), ""),
		Password:        os.Getenv("GOPANEL_PASSWORD"),
		SecretStorePath: pick(os.Getenv("GOPANEL_SECRET_STORE"), fileSecretStore(file), "data/secrets"),
		JournalPath:     pick(os.Getenv("GOPANEL_JOURNAL"), fileJournal(file), "data/journal.db"),
		LogLevel:        pick(os.Getenv("GOPANEL_LOG_LEVEL"), fileLogLevel(file), "info"),
		LogFile:         pick(os.Getenv("GOPANEL_LOG_FILE"), fileLogFile(file), "logs/gopanel.log"),
		LogConsole:      ParseBoolEnv("GOPANEL_LOG_CONSOLE", false),
	}

	// 推送地址缺省时从后端地址推导（http -> ws）
	if cfg.PortfolioWSURL == "" {
		cfg.PortfolioWSURL = derivePortfolioWS(cfg.BackendURL)
	}

	return cfg, nil
}

// derivePortfolioWS 从后端 HTTP 地址推导 WebSocket 推送地址
func derivePortfolioWS(backendURL string) string {
	ws := backendURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return strings.TrimSuffix(ws, "/") + "/ws/portfolio"
}

func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var file ConfigFile
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s", filePath)
	}
	return &file, nil
}

func pick(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func fileBackendURL(f *ConfigFile) string {
	if f == nil {
		return ""
	}
	return f.Backend.URL
}

func filePortfolioWS(f *ConfigFile) string {
	if f == nil {
		return ""
	}
	return f.Backend.PortfolioWS
}

func fileRPCURL(f *ConfigFile) string {
	if f == nil {
		return ""
	}
	return f.Solana.RPCURL
}

func fileUsername(f *ConfigFile) string {
	if f == nil {
		return ""
	}
	return f.Auth.Username
}

func fileSecretStore(f *ConfigFile) string {
	if f == nil {
		return ""
	}
	return f.Store.SecretStorePath
}

func fileJournal(f *ConfigFile) string {
	if f == nil {
		return ""
	}
	return f.Store.JournalPath
}

func fileLogLevel(f *ConfigFile) string {
	if f == nil {
		return ""
	}
	return f.LogLevel
}

func fileLogFile(f *ConfigFile) string {
	if f == nil {
		return ""
	}
	return f.LogFile
}

// ParseBoolEnv 解析布尔环境变量
func ParseBoolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
