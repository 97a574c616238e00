package gemini

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"gemini-image/common"
	"gemini-image/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeImageSize(t *testing.T) {
	tests := map[string]string{
		"1K":      "1K",
		"1k":      "1K",
		"1024":    "1K",
		"2k":      "2K",
		"2048":    "2K",
		" 4k ":    "4K",
		"4096":    "4K",
		"":        "2K",
		"8K":      "2K",
		"huge":    "2K",
		"512x512": "2K",
	}
	for in, want := range tests {
		got := NormalizeImageSize(in)
		assert.Equal(t, want, got, "input %q", in)
		// 幂等
		assert.Equal(t, got, NormalizeImageSize(got))
	}
}

func TestSupportsImageConfig(t *testing.T) {
	assert.True(t, SupportsImageConfig("gemini-3-pro-image-preview"))
	assert.True(t, SupportsImageConfig("gemini-3.1-flash-image"))
	assert.False(t, SupportsImageConfig("gemini-2.5-flash-image"))
	assert.False(t, SupportsImageConfig("gemini-2.5-flash-image-preview"))
}

// toMap 把请求序列化后再解析成通用 map，检查线上 JSON 结构
func toMap(t *testing.T, req *GenerateContentRequest) map[string]any {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestBuildRequest_TextOnly(t *testing.T) {
	req := ImageRequest{Prompt: "a red fox"}.withDefaults(common.DefaultModelName)
	m := toMap(t, BuildRequest(req))

	contents := m["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, "a red fox", parts[0].(map[string]any)["text"])

	config := m["generationConfig"].(map[string]any)
	assert.Equal(t, []any{"TEXT", "IMAGE"}, config["responseModalities"])
	assert.Equal(t, map[string]any{"imageSize": "2K", "aspectRatio": "1:1"}, config["imageConfig"])
}

func TestBuildRequest_WithInputImage(t *testing.T) {
	image := &utils.ImagePayload{Data: []byte{0xff, 0xd8, 0xff, 0x00}, MIMEType: "image/jpeg"}
	req := ImageRequest{
		Prompt:      "make it blue",
		InputImage:  image,
		Model:       "gemini-3-pro-image-preview",
		ImageSize:   "4096",
		AspectRatio: "16:9",
	}.withDefaults(common.DefaultModelName)

	m := toMap(t, BuildRequest(req))
	parts := m["contents"].([]any)[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)

	inline := parts[0].(map[string]any)["inlineData"].(map[string]any)
	assert.Equal(t, "image/jpeg", inline["mimeType"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(image.Data), inline["data"])
	assert.Equal(t, "make it blue", parts[1].(map[string]any)["text"])

	config := m["generationConfig"].(map[string]any)
	assert.Equal(t, map[string]any{"imageSize": "4K", "aspectRatio": "16:9"}, config["imageConfig"])
}

func TestBuildRequest_MissingMIMETypeDefaultsToPNG(t *testing.T) {
	req := ImageRequest{Prompt: "p", InputImage: &utils.ImagePayload{Data: []byte{1}}}.withDefaults("")
	built := BuildRequest(req)
	assert.Equal(t, "image/png", built.Contents[0].Parts[0].InlineData.MIMEType)
}

func TestBuildRequest_LegacyModelOmitsImageConfig(t *testing.T) {
	for _, model := range []string{"gemini-2.5-flash-image", "models/gemini-2.5-flash-image-preview"} {
		req := ImageRequest{Prompt: "p", Model: model, ImageSize: "4K", AspectRatio: "9:16"}.withDefaults("")
		m := toMap(t, BuildRequest(req))

		config := m["generationConfig"].(map[string]any)
		_, present := config["imageConfig"]
		assert.False(t, present, "model %s must not receive imageConfig", model)
		assert.Equal(t, []any{"TEXT", "IMAGE"}, config["responseModalities"])
	}
}

func TestImageRequest_WithDefaults(t *testing.T) {
	req := ImageRequest{Prompt: "p"}.withDefaults("custom-model")
	assert.Equal(t, "custom-model", req.Model)
	assert.Equal(t, "2K", req.ImageSize)
	assert.Equal(t, "1:1", req.AspectRatio)

	req = ImageRequest{Prompt: "p", Model: "explicit", AspectRatio: "21:9"}.withDefaults("custom-model")
	assert.Equal(t, "explicit", req.Model)
	assert.Equal(t, "21:9", req.AspectRatio)

	req = ImageRequest{Prompt: "p"}.withDefaults("")
	assert.Equal(t, common.DefaultModelName, req.Model)
}
