// Package notify publishes routing document snapshots to a chat webhook.
//
// The payload follows the Discord webhook format: a JSON body with
// "content" (and optionally "username"), or a multipart body with a
// "payload_json" part plus "files[n]" parts when an attachment is sent.
// Delivery errors are returned to the caller, which is expected to log them
// and carry on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/evercode/routegen/pkg/httpclient"
	"github.com/evercode/routegen/pkg/routing"
)

// ContentLimit is the maximum message length accepted by Discord.
const ContentLimit = 2000

const defaultTimeout = 10 * time.Second

type Options struct {
	URL      string
	Username string
	// AttachFile always sends the document as a file, even when it fits in
	// the message body.
	AttachFile     bool
	AttachmentName string
	Timeout        time.Duration
}

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// StatusError is returned for non-2xx webhook responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("webhook responded with status %d", e.StatusCode)
	if b := strings.TrimSpace(e.Body); b != "" {
		msg += ": " + b
	}
	return msg
}

type Notifier struct {
	url            string
	username       string
	attachFile     bool
	attachmentName string
	http           httpclient.HTTPDoer
}

// New builds a Notifier. A nil doer gets an *http.Client using
// opts.Timeout.
func New(opts Options, doer httpclient.HTTPDoer) (*Notifier, error) {
	u := strings.TrimSpace(opts.URL)
	if u == "" {
		return nil, errors.New("notify: webhook url is empty")
	}
	if doer == nil {
		doer = httpclient.New(opts.Timeout, defaultTimeout)
	}
	name := strings.TrimSpace(opts.AttachmentName)
	if name == "" {
		name = "routes.json"
	}
	return &Notifier{
		url:            u,
		username:       strings.TrimSpace(opts.Username),
		attachFile:     opts.AttachFile,
		attachmentName: name,
		http:           doer,
	}, nil
}

type attachmentRef struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
}

type payload struct {
	Content     string          `json:"content"`
	Username    string          `json:"username,omitempty"`
	Attachments []attachmentRef `json:"attachments,omitempty"`
}

// PublishDocument posts doc as pretty JSON. Documents that do not fit in
// one message are sent as a summary line with the JSON attached.
func (n *Notifier) PublishDocument(ctx context.Context, doc routing.Document) error {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal routing document: %w", err)
	}
	content := "```json\n" + string(body) + "\n```"
	if !n.attachFile && utf8.RuneCountInString(content) <= ContentLimit {
		return n.Send(ctx, content)
	}
	return n.Send(ctx, Summary(doc), Attachment{
		Name:        n.attachmentName,
		ContentType: "application/json",
		Data:        body,
	})
}

// Summary is the one-line message used when the document is attached.
func Summary(doc routing.Document) string {
	return fmt.Sprintf("routing snapshot: %d routers, %d services (see attachment)",
		len(doc.HTTP.Routers), len(doc.HTTP.Services))
}

// Send posts content with optional attachments.
func (n *Notifier) Send(ctx context.Context, content string, files ...Attachment) error {
	p := payload{Content: content, Username: n.username}
	for i, f := range files {
		p.Attachments = append(p.Attachments, attachmentRef{ID: i, Filename: f.Name})
	}
	pj, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var (
		body        io.Reader
		contentType string
	)
	if len(files) == 0 {
		body = bytes.NewReader(pj)
		contentType = "application/json"
	} else {
		buf, ct, err := multipartBody(pj, files)
		if err != nil {
			return err
		}
		body = buf
		contentType = ct
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, body)
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func multipartBody(payloadJSON []byte, files []Attachment) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="payload_json"`)
	h.Set("Content-Type", "application/json")
	pw, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := pw.Write(payloadJSON); err != nil {
		return nil, "", err
	}

	for i, f := range files {
		fh := make(textproto.MIMEHeader)
		fh.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[%d]"; filename=%q`, i, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		fh.Set("Content-Type", ct)
		fw, err := mw.CreatePart(fh)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
