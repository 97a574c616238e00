package gemini

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// 响应语义错误，调用方可以据此区分“没有输出”和“被拒绝”
var (
	ErrNoCandidates  = errors.New("no candidates in response")
	ErrNoParts       = errors.New("no content parts in first candidate")
	ErrEmptyResponse = errors.New("no image or text found in response")
)

// RefusalError 模型只返回了文本（例如安全拒绝）
type RefusalError struct {
	Text string
}

func (e *RefusalError) Error() string {
	return "model returned text instead of an image: " + e.Text
}

// ImageResult 解码后的输出图片
type ImageResult struct {
	Data     []byte
	MIMEType string
}

// ExtractImage 只看第一个候选：返回第一个 image/* 的 inlineData；
// 没有图片时把第一段文本作为拒绝原因返回。
func ExtractImage(resp *genai.GenerateContentResponse) (*ImageResult, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w (prompt blocked: %s)", ErrNoCandidates, resp.PromptFeedback.BlockReason)
		}
		return nil, ErrNoCandidates
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate != nil && abnormalFinish(candidate.FinishReason) {
			return nil, fmt.Errorf("%w (finish reason: %s)", ErrNoParts, candidate.FinishReason)
		}
		return nil, ErrNoParts
	}

	if part := firstImagePart(candidate.Content.Parts); part != nil {
		return &ImageResult{
			Data:     part.InlineData.Data,
			MIMEType: part.InlineData.MIMEType,
		}, nil
	}

	for _, part := range candidate.Content.Parts {
		if part != nil && !part.Thought && strings.TrimSpace(part.Text) != "" {
			return nil, &RefusalError{Text: strings.TrimSpace(part.Text)}
		}
	}

	if abnormalFinish(candidate.FinishReason) {
		return nil, fmt.Errorf("%w (finish reason: %s)", ErrEmptyResponse, candidate.FinishReason)
	}
	return nil, ErrEmptyResponse
}

// firstImagePart 第一个 image/* 的 inlineData part。
// 思考过程中的草稿图（thought=true）只在没有正式结果时才使用。
func firstImagePart(parts []*genai.Part) *genai.Part {
	var draft *genai.Part
	for _, part := range parts {
		if !isImagePart(part) {
			continue
		}
		if !part.Thought {
			return part
		}
		if draft == nil {
			draft = part
		}
	}
	return draft
}

func isImagePart(part *genai.Part) bool {
	return part != nil &&
		part.InlineData != nil &&
		len(part.InlineData.Data) > 0 &&
		strings.HasPrefix(strings.ToLower(part.InlineData.MIMEType), "image/")
}

func abnormalFinish(reason genai.FinishReason) bool {
	return reason != "" && reason != genai.FinishReasonUnspecified && reason != genai.FinishReasonStop
}
