// Package pdf は証明書PDFの生成と、生成ジョブのオーケストレーションを提供します。
package pdf

import "fmt"

// Error は利用者に返すアプリケーションエラーを表します。
// Code は respondWithError でHTTPステータスに変換されます。
type Error struct {
	Code    string
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, err: err}
}
