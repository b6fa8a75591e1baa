package httpapi

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// kind 標記錯誤分類，集合封閉；新增分類需同步更新 status/title 對應。
type kind int

const (
	kindNotFound kind = iota
	kindUnprocessableEntity
	kindBadRequest
	kindForbidden
	kindUnauthorized
	kindDatabase
	kindInternal
)

// Error 是 handler 對外的統一錯誤型別：handler 只回傳 *Error（或任何 error），
// 由錯誤對應層轉成固定格式的 JSON 回應，不自行組 HTTP 回應內容。
type Error struct {
	kind    kind
	message string
	fields  map[string][]string
	cause   error
}

var (
	// ErrNotFound 對應 404，也用於未匹配的路由。
	ErrNotFound = &Error{kind: kindNotFound}

	// ErrUnprocessableEntity 對應 422，訊息留空。
	ErrUnprocessableEntity = &Error{kind: kindUnprocessableEntity}

	// ErrForbidden 對應 403。
	ErrForbidden = &Error{kind: kindForbidden}

	// ErrUnauthorized 對應 401，回應會附上 WWW-Authenticate: Token。
	ErrUnauthorized = &Error{kind: kindUnauthorized}
)

// FieldError 是單一欄位上的一筆驗證訊息。
type FieldError struct {
	Field   string
	Message string
}

// BadRequest 將 (欄位, 訊息) 序列折疊成欄位對應訊息列表的 400 錯誤；
// 同一欄位的多筆訊息依出現順序累加，不會互相覆蓋。
func BadRequest(violations ...FieldError) *Error {
	fields := make(map[string][]string)
	for _, v := range violations {
		fields[v.Field] = append(fields[v.Field], v.Message)
	}
	return &Error{kind: kindBadRequest, fields: fields}
}

// UnprocessableEntity 建立帶自訂訊息的 422 錯誤。
func UnprocessableEntity(message string) *Error {
	return &Error{kind: kindUnprocessableEntity, message: message}
}

// DatabaseError 包裝資料庫層失敗；原因只進日誌，不會出現在客戶端回應。
func DatabaseError(err error) *Error {
	return &Error{kind: kindDatabase, cause: err}
}

// Internal 包裝其他未預期的失敗；原因只進日誌，不會出現在客戶端回應。
func Internal(err error) *Error {
	return &Error{kind: kindInternal, cause: err}
}

func (e *Error) Error() string {
	switch e.kind {
	case kindNotFound:
		return "request path not found"
	case kindUnprocessableEntity:
		return e.message
	case kindBadRequest:
		return "error in the request body"
	case kindForbidden:
		return "user may not have access rights to the content"
	case kindUnauthorized:
		return "authorization required"
	case kindDatabase:
		return "an error occurred with the database"
	default:
		return "an internal server error has occurred"
	}
}

// Unwrap 讓 errors.Is / errors.As 能穿透 500 類錯誤取得底層原因。
func (e *Error) Unwrap() error { return e.cause }

func (e *Error) status() int {
	switch e.kind {
	case kindNotFound:
		return http.StatusNotFound
	case kindUnprocessableEntity:
		return http.StatusUnprocessableEntity
	case kindBadRequest:
		return http.StatusBadRequest
	case kindForbidden:
		return http.StatusForbidden
	case kindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (e *Error) title() string {
	switch e.kind {
	case kindNotFound:
		return "Not Found"
	case kindUnprocessableEntity:
		return "Unprocessable Entity"
	case kindBadRequest:
		return "Bad Request"
	case kindForbidden:
		return "Forbidden"
	case kindUnauthorized:
		return "Unauthorized"
	default:
		return "Internal Server Error"
	}
}

// errorBody 是所有錯誤回應共用的 JSON 結構；
// errors 欄位只在 400 帶有欄位明細時出現。
type errorBody struct {
	Title   string              `json:"title"`
	Status  int                 `json:"status"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func (e *Error) body() errorBody {
	return errorBody{
		Title:   e.title(),
		Status:  e.status(),
		Message: e.Error(),
		Errors:  e.fields,
	}
}

// coerce 把任意 error 正規化成 *Error：資料庫層的失敗歸為 database 變體，
// 其餘未知錯誤歸為 internal，所以轉換對所有輸入都有定義。
func coerce(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrTxDone) {
		return DatabaseError(err)
	}
	return Internal(err)
}

// writeError 將 handler 回傳的錯誤寫成統一的 JSON 回應。
// 500 類錯誤的底層原因在這裡記錄日誌，客戶端只會看到固定訊息。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := coerce(err)

	if apiErr.status() >= http.StatusInternalServerError {
		cause := apiErr.cause
		if cause == nil {
			cause = err
		}
		zerolog.Ctx(r.Context()).Error().Err(cause).Msg("request failed")
	}
	if apiErr.kind == kindUnauthorized {
		w.Header().Set("WWW-Authenticate", "Token")
	}
	writeJSON(w, apiErr.status(), apiErr.body())
}

// apiHandler 讓 handler 以回傳 error 結束請求，由錯誤對應層統一輸出。
type apiHandler func(http.ResponseWriter, *http.Request) error

func (h apiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		writeError(w, r, err)
	}
}

// OnConstraint 攔截指定名稱的資料庫 constraint 失敗並以 remap 的結果取代，
// 常用於把唯一鍵衝突轉成欄位層級的驗證錯誤；其他錯誤（包含不同名稱的
// constraint 失敗與非資料庫錯誤）原樣通過。
//
//	err = OnConstraint(err, "user_username_key", func(*pgconn.PgError) error {
//	    return BadRequest(FieldError{Field: "username", Message: "already taken"})
//	})
func OnConstraint(err error, name string, remap func(*pgconn.PgError) error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == name {
		return remap(pgErr)
	}
	return err
}
