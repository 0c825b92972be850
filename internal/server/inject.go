package server

import (
	"bytes"
)

// liveReloadScript reconnects after the server restarts and reloads once the
// connection is back so the page picks up the fresh build.
const liveReloadScript = `<script data-livereload>(function(){` +
	`var proto=location.protocol==="https:"?"wss:":"ws:";var retry=false;` +
	`function connect(){var ws=new WebSocket(proto+"//"+location.host+"` + LiveReloadPath + `");` +
	`ws.onopen=function(){if(retry){location.reload();}};` +
	`ws.onmessage=function(e){if(e.data==="` + ReloadMessage + `"){location.reload();}};` +
	`ws.onclose=function(){retry=true;setTimeout(connect,1000);};}` +
	`connect();})();</script>`

var closingBody = []byte("</body>")

// injectLiveReload inserts the client script before the last </body>. Pages
// without a body tag get the script appended.
func injectLiveReload(page []byte) []byte {
	if bytes.Contains(page, []byte("data-livereload")) {
		return page
	}
	idx := bytes.LastIndex(bytes.ToLower(page), closingBody)
	out := make([]byte, 0, len(page)+len(liveReloadScript))
	if idx < 0 {
		out = append(out, page...)
		return append(out, liveReloadScript...)
	}
	out = append(out, page[:idx]...)
	out = append(out, liveReloadScript...)
	return append(out, page[idx:]...)
}
