package server

import (
	"embed"
	"fmt"
	"time"
)

//go:embed pages/*.html
var pages embed.FS

// ルートのラベル（メトリクス用）
const (
	RouteRoot     = "/"
	RouteSleep    = "/sleep"
	RouteNotFound = "not_found"
)

const (
	statusOK       = "HTTP/1.1 200 OK"
	statusNotFound = "HTTP/1.1 404 NOT FOUND"
)

// Response はリクエスト行に対する応答
type Response struct {
	Route      string
	StatusCode int
	StatusLine string
	Body       []byte
	Delay      time.Duration // 応答前に待つ時間（/sleep 用）
}

// Bytes は接続に書き込むバイト列を返す
func (r Response) Bytes() []byte {
	head := fmt.Sprintf("%s\r\nContent-Length: %d\r\n\r\n", r.StatusLine, len(r.Body))
	return append([]byte(head), r.Body...)
}

// Router はリクエスト行をページに対応づける
// 認識するのは "GET / HTTP/1.1" と "GET /sleep HTTP/1.1" の二つだけ
type Router struct {
	sleepDelay time.Duration
	hello      []byte
	notFound   []byte
}

// NewRouter は埋め込みページを読み込んでルーターを作成する
func NewRouter(sleepDelay time.Duration) *Router {
	return &Router{
		sleepDelay: sleepDelay,
		hello:      mustReadPage("pages/hello.html"),
		notFound:   mustReadPage("pages/404.html"),
	}
}

// Route はリクエスト行（末尾の改行を除いたもの）に対する応答を返す
func (rt *Router) Route(requestLine string) Response {
	switch requestLine {
	case "GET / HTTP/1.1":
		return Response{Route: RouteRoot, StatusCode: 200, StatusLine: statusOK, Body: rt.hello}
	case "GET /sleep HTTP/1.1":
		return Response{Route: RouteSleep, StatusCode: 200, StatusLine: statusOK, Body: rt.hello, Delay: rt.sleepDelay}
	default:
		return Response{Route: RouteNotFound, StatusCode: 404, StatusLine: statusNotFound, Body: rt.notFound}
	}
}

func mustReadPage(name string) []byte {
	data, err := pages.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("embedded page %s: %v", name, err))
	}
	return data
}
