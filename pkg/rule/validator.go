// Package rule 提供结构体和字段验证功能的封装，基于 go-playground/validator 实现.
// 除内置规则外还注册了 s3_bucket（存储桶命名）与 s3_key（对象键）规则.
package rule

import (
	"net"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	// TagName 结构体标签名.
	TagName = "rule"

	// MaxObjectKeyLength 对象键的最大 UTF-8 字节数.
	MaxObjectKeyLength = 1024
)

var (
	inst *validator.Validate
	once sync.Once

	bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
)

// initValidator 尝试复用 gin 的 validator 引擎；若不可用则新建，随后注册自定义规则.
func initValidator() {
	if engine := binding.Validator.Engine(); engine != nil {
		if v, ok := engine.(*validator.Validate); ok {
			inst = v
		}
	}

	if inst == nil {
		inst = validator.New()
	}

	inst.SetTagName(TagName)

	_ = inst.RegisterValidation("s3_bucket", validateBucketName)
	_ = inst.RegisterValidation("s3_key", validateObjectKey)
}

// lazyInit 初始化全局 validator（幂等）.
func lazyInit() {
	once.Do(initValidator)
}

// Engine 返回全局 *validator.Validate，若未初始化则先初始化.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// RegisterValidation 代理 RegisterValidation，确保已初始化.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	lazyInit()

	return inst.RegisterValidation(tag, fn, opts...)
}

// ValidateStruct 对结构体执行完整校验，返回原始 error（可用 validator.ValidationErrors 解析）.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}

// ValidateVar 按规则对单个变量校验，例如: ValidateVar("my-bucket", "required,s3_bucket").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return inst.Var(field, tag)
}

// RegisterAlias 包装 RegisterAlias，便于注册别名规则.
func RegisterAlias(alias, rules string) {
	lazyInit()

	inst.RegisterAlias(alias, rules)
}

// IsValidBucketName 判断存储桶名称是否满足 S3 命名规则.
func IsValidBucketName(name string) bool {
	if !bucketNamePattern.MatchString(name) {
		return false
	}

	if strings.Contains(name, "..") || strings.Contains(name, ".-") || strings.Contains(name, "-.") {
		return false
	}

	// 不允许 IP 地址形式
	return net.ParseIP(name) == nil
}

// IsValidObjectKey 判断对象键是否非空、合法 UTF-8 且不超过长度上限.
func IsValidObjectKey(key string) bool {
	return key != "" && len(key) <= MaxObjectKeyLength && utf8.ValidString(key)
}

func validateBucketName(fl validator.FieldLevel) bool {
	return IsValidBucketName(fl.Field().String())
}

func validateObjectKey(fl validator.FieldLevel) bool {
	return IsValidObjectKey(fl.Field().String())
}
