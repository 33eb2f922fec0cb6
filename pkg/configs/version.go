package configs

// AppVersion 当前版本，用于 User-Agent、追踪资源与指标标签.
const AppVersion = "0.3.0"
