package presigner_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/sdkcore/pkg/presigner"
)

func TestSignatureDurationRoundTrip(t *testing.T) {
	for _, d := range []time.Duration{0, time.Nanosecond, time.Second, 15 * time.Minute, 30 * 24 * time.Hour, -time.Minute} {
		req, err := presigner.NewGetObjectBuilder().
			Bucket("sdk-bucket").
			Key("a.txt").
			SignatureDuration(d).
			Build()
		require.NoError(t, err, d)
		assert.Equal(t, d, req.SignatureDuration())
	}
}

func TestBuildWithoutDurationFails(t *testing.T) {
	_, err := presigner.NewPutObjectBuilder().Bucket("sdk-bucket").Key("a.txt").Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, presigner.ErrMissingParameter)

	var pe *presigner.ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "SignatureDuration", pe.Param)
	assert.Contains(t, err.Error(), "SignatureDuration")
}

func TestNilDurationClearsPreviousValue(t *testing.T) {
	_, err := presigner.NewGetObjectBuilder().
		Bucket("sdk-bucket").
		Key("a.txt").
		SignatureDuration(time.Minute).
		SignatureDurationPtr(nil).
		Build()
	require.ErrorIs(t, err, presigner.ErrMissingParameter)

	d := 2 * time.Minute
	req, err := presigner.NewGetObjectBuilder().
		Bucket("sdk-bucket").
		Key("a.txt").
		SignatureDurationPtr(nil).
		SignatureDurationPtr(&d).
		Build()
	require.NoError(t, err)

	// 修改原变量不影响 builder 中保存的值
	d = time.Hour
	assert.Equal(t, 2*time.Minute, req.SignatureDuration())
}

func TestDurationOverwrite(t *testing.T) {
	req, err := presigner.NewPostPolicyBuilder().
		Bucket("sdk-bucket").
		KeyPrefix("uploads/").
		SignatureDuration(time.Minute).
		SignatureDuration(time.Hour).
		Build()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, req.SignatureDuration())
}

func TestCopyConstruction(t *testing.T) {
	get, err := presigner.NewGetObjectBuilder().
		Bucket("sdk-bucket").
		Key("reports/a.csv").
		VersionID("v1").
		ResponseHeader("content-disposition", "attachment").
		SignatureDuration(10 * time.Minute).
		Build()
	require.NoError(t, err)

	copied, err := get.ToBuilder().Build()
	require.NoError(t, err)
	assert.Equal(t, get, copied)
	assert.Equal(t, get.SignatureDuration(), copied.SignatureDuration())

	put, err := presigner.NewPutObjectBuilder().
		Bucket("sdk-bucket").
		Key("a.bin").
		ContentType("application/octet-stream").
		Metadata("Owner", "alice").
		SignatureDuration(time.Hour).
		Build()
	require.NoError(t, err)

	putCopy, err := put.ToBuilder().Build()
	require.NoError(t, err)
	assert.Equal(t, put, putCopy)

	post, err := presigner.NewPostPolicyBuilder().
		Bucket("sdk-bucket").
		Key("form.bin").
		ContentLengthRange(1, 1024).
		SignatureDuration(time.Minute).
		Build()
	require.NoError(t, err)

	postCopy, err := post.ToBuilder().Build()
	require.NoError(t, err)
	assert.Equal(t, post, postCopy)
}

func TestCopyThenModify(t *testing.T) {
	original, err := presigner.NewGetObjectBuilder().
		Bucket("sdk-bucket").
		Key("a.txt").
		ResponseHeader("response-content-type", "text/plain").
		SignatureDuration(time.Minute).
		Build()
	require.NoError(t, err)

	modified, err := original.ToBuilder().
		ResponseHeader("content-type", "application/json").
		SignatureDuration(time.Hour).
		Build()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, original.SignatureDuration())
	assert.Equal(t, "text/plain", original.ResponseHeaders().Get("response-content-type"))
	assert.Equal(t, time.Hour, modified.SignatureDuration())
	assert.Equal(t, "application/json", modified.ResponseHeaders().Get("response-content-type"))
}

func TestBuiltRequestIsImmutable(t *testing.T) {
	req, err := presigner.NewPutObjectBuilder().
		Bucket("sdk-bucket").
		Key("a.bin").
		Metadata("owner", "alice").
		SignatureDuration(time.Minute).
		Build()
	require.NoError(t, err)

	md := req.Metadata()
	md["owner"] = "mallory"

	assert.Equal(t, "alice", req.Metadata()["owner"])
}

func TestExpirationAndDurationAreExclusive(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := presigner.NewGetObjectBuilder().
		Bucket("sdk-bucket").
		Key("a.txt").
		SignatureDuration(time.Minute).
		SignatureExpiration(now.Add(time.Hour)).
		Build()
	require.ErrorIs(t, err, presigner.ErrConflictingExpiration)
	assert.ErrorIs(t, err, presigner.ErrInvalidParameter)

	req, err := presigner.NewGetObjectBuilder().
		Bucket("sdk-bucket").
		Key("a.txt").
		Clock(func() time.Time { return now }).
		SignatureExpiration(now.Add(90 * time.Minute)).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, req.SignatureDuration())

	// 复制后只保留换算出的有效期
	copied, err := req.ToBuilder().Build()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, copied.SignatureDuration())
}

func TestFieldValidation(t *testing.T) {
	cases := []struct {
		name  string
		build func() error
		param string
	}{
		{"missing bucket", func() error {
			_, err := presigner.NewGetObjectBuilder().Key("a").SignatureDuration(time.Minute).Build()
			return err
		}, "Bucket"},
		{"invalid bucket", func() error {
			_, err := presigner.NewPutObjectBuilder().Bucket("Bad_Bucket").Key("a").SignatureDuration(time.Minute).Build()
			return err
		}, "Bucket"},
		{"missing key", func() error {
			_, err := presigner.NewPutObjectBuilder().Bucket("sdk-bucket").SignatureDuration(time.Minute).Build()
			return err
		}, "Key"},
		{"post without key", func() error {
			_, err := presigner.NewPostPolicyBuilder().Bucket("sdk-bucket").SignatureDuration(time.Minute).Build()
			return err
		}, "Key"},
		{"post key and prefix", func() error {
			_, err := presigner.NewPostPolicyBuilder().Bucket("sdk-bucket").Key("a").KeyPrefix("b/").
				SignatureDuration(time.Minute).Build()
			return err
		}, "KeyPrefix"},
		{"post inverted range", func() error {
			_, err := presigner.NewPostPolicyBuilder().Bucket("sdk-bucket").Key("a").ContentLengthRange(10, 1).
				SignatureDuration(time.Minute).Build()
			return err
		}, "ContentLengthRange"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build()

			var pe *presigner.ParamError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.param, pe.Param)
		})
	}
}

func TestDurationCheckedBeforeFields(t *testing.T) {
	_, err := presigner.NewGetObjectBuilder().Build()

	var pe *presigner.ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "SignatureDuration", pe.Param)
}
