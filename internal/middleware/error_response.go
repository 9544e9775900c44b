package middleware

import "net/http"

// ErrorWriter はミドルウェアがリクエストを拒否する際のレスポンスを書き込む。
// ハンドラー層のエラーページ描画を差し込むために使う。
type ErrorWriter func(w http.ResponseWriter, r *http.Request, statusCode int)

// WritePlainError はステータスコードに対応する文言をtext/plainで書き込む。
// ErrorWriterが指定されていない場合の既定値。
func WritePlainError(w http.ResponseWriter, _ *http.Request, statusCode int) {
	http.Error(w, http.StatusText(statusCode), statusCode)
}

func errorWriterOrDefault(ew ErrorWriter) ErrorWriter {
	if ew == nil {
		return WritePlainError
	}
	return ew
}
