package console

import "net/http"

const stylesheet = `
body { font-family: system-ui, sans-serif; margin: 0; background: #f6f7f9; color: #1f2328; }
.layout { max-width: 1100px; margin: 0 auto; padding: 24px; }
.tabs { display: flex; gap: 4px; border-bottom: 1px solid #d0d7de; margin-bottom: 16px; }
.tabs a { padding: 8px 14px; text-decoration: none; color: #57606a; border-radius: 6px 6px 0 0; }
.tabs a.active { background: #fff; color: #1f2328; border: 1px solid #d0d7de; border-bottom-color: #fff; }
.tabs .busy { color: #bf8700; font-size: 12px; margin-left: 4px; }
.card { background: #fff; border: 1px solid #d0d7de; border-radius: 6px; padding: 16px; margin-bottom: 16px; }
.notice { padding: 10px 14px; border-radius: 6px; margin-bottom: 16px; }
.notice.ok { background: #dafbe1; }
.notice.error { background: #ffebe9; }
.notice.busy { background: #fff8c5; }
.stack-form { display: grid; gap: 10px; max-width: 420px; }
.stack-form input, .stack-form select { padding: 6px 8px; }
table { width: 100%; border-collapse: collapse; }
th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #eaeef2; }
.badge { display: inline-block; padding: 1px 8px; border-radius: 10px; background: #ddf4ff; margin-right: 4px; font-size: 12px; }
.status-Inactive { color: #cf222e; }
.muted { color: #57606a; }
.modal { max-width: 480px; margin: 40px auto; }
.row-actions form { display: inline; }
`

func serveStylesheet(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write([]byte(stylesheet))
}
