package ws

import (
	"context"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// connSurface projects view model writes as patch messages on the socket.
type connSurface struct {
	ctx  context.Context
	conn *websocket.Conn
}

func (s *connSurface) write(msg any) error {
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, s.conn, msg)
}

func (s *connSurface) SetHTML(anchor, html string) error {
	return s.write(PatchMessage{Type: "patch", Target: anchor, Mode: ModeHTML, Content: html})
}

func (s *connSurface) SetText(anchor, text string) error {
	return s.write(PatchMessage{Type: "patch", Target: anchor, Mode: ModeText, Content: text})
}

func (s *connSurface) Download(filename, contentType string, data []byte) error {
	return s.write(DownloadMessage{Type: "download", Filename: filename, ContentType: contentType, Data: data})
}

func (s *connSurface) ReportError(message string) error {
	return s.write(ErrorMessage{Type: "error", Message: message})
}
