package pkgdiff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type RequestType string

const (
	RequestStartDiff   RequestType = "start-diff"
	RequestPrefetch    RequestType = "prefetch"
	RequestGetDiff     RequestType = "get-diff"
	RequestGetFileDiff RequestType = "get-file-diff"
)

// Request is one protocol message. Which fields matter depends on Type:
//
//	start-diff, prefetch: Source, Package, From, To
//	get-diff:             Filename, FromContent, ToContent
//	get-file-diff:        Path, OldPath
type Request struct {
	ID   string      `json:"id,omitempty"`
	Type RequestType `json:"type"`

	Source  string `json:"source,omitempty"`
	Package string `json:"pkg,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`

	Filename    string  `json:"filename,omitempty"`
	FromContent *string `json:"fromContent,omitempty"`
	ToContent   *string `json:"toContent,omitempty"`

	Path    string `json:"path,omitempty"`
	OldPath string `json:"oldPath,omitempty"`
}

type ResponseType string

const (
	ResponseTree     ResponseType = "tree-result"
	ResponseContent  ResponseType = "content-result"
	ResponsePrefetch ResponseType = "prefetch-result"
	ResponseError    ResponseType = "error"
)

// Response answers exactly one Request and carries its ID. At most one of
// Tree, Content and Err is set.
type Response struct {
	ID      string
	Type    ResponseType
	Tree    *TreeResult
	Content *ContentResult
	Err     error
}

type wireResponse struct {
	ID        string          `json:"id"`
	Type      ResponseType    `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	FromFiles Files           `json:"fromFiles,omitempty"`
	ToFiles   Files           `json:"toFiles,omitempty"`
	Filename  string          `json:"filename,omitempty"`
	IsDiff    *bool           `json:"isDiff,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	w := wireResponse{ID: r.ID, Type: r.Type}
	var data any
	switch {
	case r.Err != nil:
		w.Error = r.Err.Error()
	case r.Tree != nil:
		tree := r.Tree.Tree
		if tree == nil {
			tree = []DiffFileEntry{}
		}
		data = tree
		w.FromFiles, w.ToFiles = r.Tree.FromFiles, r.Tree.ToFiles
	case r.Content != nil:
		data = r.Content.Data
		w.Filename = r.Content.Filename
		w.IsDiff = &r.Content.IsDiff
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		w.Data = raw
	}
	return json.Marshal(w)
}

func (r *Response) UnmarshalJSON(b []byte) error {
	var w wireResponse
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Response{ID: w.ID, Type: w.Type}
	switch w.Type {
	case ResponseError:
		r.Err = errors.New(w.Error)
	case ResponseTree:
		r.Tree = &TreeResult{FromFiles: w.FromFiles, ToFiles: w.ToFiles}
		if len(w.Data) > 0 {
			if err := json.Unmarshal(w.Data, &r.Tree.Tree); err != nil {
				return fmt.Errorf("decode tree: %w", err)
			}
		}
	case ResponseContent:
		r.Content = &ContentResult{Filename: w.Filename}
		if w.IsDiff != nil {
			r.Content.IsDiff = *w.IsDiff
		}
		if len(w.Data) > 0 {
			if err := json.Unmarshal(w.Data, &r.Content.Data); err != nil {
				return fmt.Errorf("decode content: %w", err)
			}
		}
	}
	return nil
}

// Handle processes one request. Requests without an ID get a fresh one.
// Failures become error responses; Handle itself never fails.
func (s *Session) Handle(ctx context.Context, req Request) Response {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	resp := Response{ID: req.ID}

	var err error
	switch req.Type {
	case RequestStartDiff:
		resp.Type = ResponseTree
		resp.Tree, err = s.Diff(ctx, req.Source, req.Package, req.From, req.To)
	case RequestPrefetch:
		resp.Type = ResponsePrefetch
		s.Prefetch(ctx, req.Source, req.Package, req.From, req.To)
	case RequestGetDiff:
		resp.Type = ResponseContent
		resp.Content, err = s.ContentDiff(ctx, req.Filename, req.FromContent, req.ToContent)
	case RequestGetFileDiff:
		resp.Type = ResponseContent
		resp.Content, err = s.FileDiff(ctx, req.Path, req.OldPath)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownRequest, req.Type)
	}

	if err != nil {
		s.log.Debug().Err(err).Str("id", req.ID).Str("type", string(req.Type)).Msg("request failed")
		return Response{ID: req.ID, Type: ResponseError, Err: err}
	}
	return resp
}
