package rule_test

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/sdkcore/pkg/rule"
)

// objectTarget 用于测试 ValidateStruct.
type objectTarget struct {
	Bucket string `rule:"required,s3_bucket"`
	Key    string `rule:"required,s3_key"`
	Parts  int    `rule:"gte=1"`
}

// TestEngine 测试 Engine 函数返回非 nil 实例.
func TestEngine(t *testing.T) {
	engine := rule.Engine()
	if engine == nil {
		t.Error("Engine() returned nil")
	}
}

// TestValidateStruct 测试 ValidateStruct 对有效和无效结构体的验证.
func TestValidateStruct(t *testing.T) {
	valid := objectTarget{Bucket: "sdk-bucket", Key: "reports/2024.csv", Parts: 1}
	if err := rule.ValidateStruct(valid); err != nil {
		t.Errorf("Expected no error for valid struct, got %v", err)
	}

	// 无效结构体：存储桶名称包含大写字母
	invalidBucket := objectTarget{Bucket: "SDK-Bucket", Key: "a", Parts: 1}
	if err := rule.ValidateStruct(invalidBucket); err == nil {
		t.Error("Expected error for invalid bucket name, got nil")
	}

	// 无效结构体：缺少 Key
	missingKey := objectTarget{Bucket: "sdk-bucket", Parts: 1}
	if err := rule.ValidateStruct(missingKey); err == nil {
		t.Error("Expected error for missing key, got nil")
	}

	// 无效结构体：Parts 小于 1
	noParts := objectTarget{Bucket: "sdk-bucket", Key: "a"}
	if err := rule.ValidateStruct(noParts); err == nil {
		t.Error("Expected error for parts < 1, got nil")
	}
}

// TestBucketName 测试 S3 存储桶命名规则.
func TestBucketName(t *testing.T) {
	cases := map[string]bool{
		"abc":                   true,
		"my.bucket-01":          true,
		"ab":                    false,
		strings.Repeat("a", 64): false,
		"-bucket":               false,
		"bucket-":               false,
		"my..bucket":            false,
		"my.-bucket":            false,
		"Upper":                 false,
		"192.168.1.10":          false,
		"under_score":           false,
		strings.Repeat("b", 63): true,
	}

	for name, want := range cases {
		if got := rule.IsValidBucketName(name); got != want {
			t.Errorf("IsValidBucketName(%q) = %v, want %v", name, got, want)
		}

		err := rule.ValidateVar(name, "s3_bucket")
		if (err == nil) != want {
			t.Errorf("ValidateVar(%q, s3_bucket) error = %v, want valid=%v", name, err, want)
		}
	}
}

// TestObjectKey 测试对象键规则.
func TestObjectKey(t *testing.T) {
	if !rule.IsValidObjectKey("photos/2024/cat.png") {
		t.Error("expected nested key to be valid")
	}

	if rule.IsValidObjectKey("") {
		t.Error("expected empty key to be invalid")
	}

	if rule.IsValidObjectKey(strings.Repeat("k", rule.MaxObjectKeyLength+1)) {
		t.Error("expected oversized key to be invalid")
	}

	if rule.IsValidObjectKey(string([]byte{0xff, 0xfe})) {
		t.Error("expected invalid utf-8 key to be invalid")
	}
}

// TestValidateVar 测试 ValidateVar 对变量的验证.
func TestValidateVar(t *testing.T) {
	if err := rule.ValidateVar(25, "gte=18"); err != nil {
		t.Errorf("Expected no error for valid number, got %v", err)
	}

	if err := rule.ValidateVar(15, "gte=18"); err == nil {
		t.Error("Expected error for invalid number, got nil")
	}
}

// TestRegisterValidation 测试注册自定义验证.
func TestRegisterValidation(t *testing.T) {
	// 注册自定义验证：检查字符串长度是否为偶数
	err := rule.RegisterValidation("even_length", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}

		return len(str)%2 == 0
	})
	if err != nil {
		t.Fatalf("Failed to register validation: %v", err)
	}

	if err := rule.ValidateVar("test", "even_length"); err != nil {
		t.Errorf("Expected no error for even length string, got %v", err)
	}

	if err := rule.ValidateVar("test1", "even_length"); err == nil {
		t.Error("Expected error for odd length string, got nil")
	}
}

// TestRegisterAlias 测试注册别名.
func TestRegisterAlias(t *testing.T) {
	rule.RegisterAlias("bucket_required", "required,s3_bucket")

	if err := rule.ValidateVar("logs", "bucket_required"); err != nil {
		t.Errorf("Expected no error for valid bucket with alias, got %v", err)
	}

	if err := rule.ValidateVar("", "bucket_required"); err == nil {
		t.Error("Expected error for empty bucket with alias, got nil")
	}
}
