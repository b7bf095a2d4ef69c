package models

import "fmt"

// ErrorKind 错误分类
type ErrorKind string

const (
	KindNoFileUploaded        ErrorKind = "NoFileUploaded"
	KindUnsupportedFormat     ErrorKind = "UnsupportedFormat"
	KindMediaExtraction       ErrorKind = "MediaExtractionError"
	KindTranscriptionService  ErrorKind = "TranscriptionServiceError"
	KindTranslationService    ErrorKind = "TranslationServiceError"
	KindInvalidTimestampInput ErrorKind = "InvalidTimestampInput"
)

// Error 带分类的错误，errors.Is 按 Kind 匹配
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// 用于 errors.Is 判断的哨兵错误
var (
	ErrNoFileUploaded       = &Error{Kind: KindNoFileUploaded}
	ErrUnsupportedFormat    = &Error{Kind: KindUnsupportedFormat}
	ErrMediaExtraction      = &Error{Kind: KindMediaExtraction}
	ErrTranscriptionService = &Error{Kind: KindTranscriptionService}
	ErrTranslationService   = &Error{Kind: KindTranslationService}
	ErrInvalidTimestamp     = &Error{Kind: KindInvalidTimestampInput}
)

// NewError 创建分类错误
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
