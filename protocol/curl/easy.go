package curl

import (
	"context"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/sagernet/sing-slist/common/buf"
	E "github.com/sagernet/sing-slist/common/exceptions"
	"github.com/sagernet/sing-slist/common/header"
	"github.com/sagernet/sing-slist/protocol/curl/slist"

	"github.com/go-resty/resty/v2"
)

const DefaultUserAgent = "sing-slist/1.0"

type Options struct {
	Library    Library
	Allocator  buf.Allocator
	// Client is taken over by Easy, which installs its own pre-request hook.
	Client     *resty.Client
	Timeout    time.Duration
	MaxHeaders int
	// Headers are sent unless the request's header list sets or removes them.
	Headers http.Header
}

// Easy performs one transfer per call, handing the transfer engine a header
// list that lives exactly as long as the call.
type Easy struct {
	library   Library
	allocator buf.Allocator
	client    *resty.Client
	timeout   time.Duration
	limit     int
	headers   http.Header
}

type headerOverrideKey struct{}

type Request struct {
	Method  string
	URL     string
	Headers []header.Entry
	Body    []byte
}

type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func NewEasy(options Options) *Easy {
	easy := &Easy{
		library:   options.Library,
		allocator: options.Allocator,
		client:    options.Client,
		timeout:   options.Timeout,
		limit:     options.MaxHeaders,
		headers:   options.Headers,
	}
	if easy.library == nil {
		easy.library = slist.New(slist.Options{})
	}
	if easy.allocator == nil {
		easy.allocator = buf.DefaultAllocator
	}
	if easy.client == nil {
		easy.client = resty.New()
	}
	easy.client.SetPreRequestHook(applyHeaderOverride)
	if easy.headers == nil {
		easy.headers = http.Header{"User-Agent": {DefaultUserAgent}}
	}
	return easy
}

func (e *Easy) Perform(ctx context.Context, request Request) (*Response, error) {
	var response *Response
	err := WithHeaders(e.library, ScopeOptions{
		Allocator:  e.allocator,
		MaxHeaders: e.limit,
	}, request.Headers, func(list *slist.List) error {
		var transferErr error
		response, transferErr = e.transfer(ctx, request, list)
		return transferErr
	})
	if err != nil {
		if E.IsTimeout(err) {
			logger.Debug("transfer to ", request.URL, " timed out")
		}
		return nil, err
	}
	return response, nil
}

func (e *Easy) transfer(ctx context.Context, request Request, list *slist.List) (*Response, error) {
	method := request.Method
	if method == "" {
		if request.Body != nil {
			method = http.MethodPost
		} else {
			method = http.MethodGet
		}
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	requestHeader, override := e.requestHeader(list)
	ctx = context.WithValue(ctx, headerOverrideKey{}, override)
	r := e.client.R().SetContext(ctx)
	r.Header = requestHeader
	if request.Body != nil {
		r.SetBody(request.Body)
	}
	resp, err := r.Execute(method, request.URL)
	if err != nil {
		return nil, E.Cause(err, method, " ", request.URL)
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// requestHeader reads the foreign list the way the transfer library does:
// "Key: Value" adds a header, "Key:" with nothing after the colon removes it
// and "Key;" sends it without a value. A listed key replaces the default
// header of the same name. The second result holds the final values of every
// listed key, to be enforced after resty has added its own defaults.
func (e *Easy) requestHeader(list *slist.List) (http.Header, http.Header) {
	requestHeader := e.headers.Clone()
	replaced := make(map[string]bool)
	for ; list != nil; list = list.Next {
		line := buf.GoString(list.Data)
		separator := strings.IndexAny(line, ":;")
		if separator <= 0 {
			continue
		}
		key := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(line[:separator]))
		if !replaced[key] {
			requestHeader.Del(key)
			replaced[key] = true
		}
		if line[separator] == ';' {
			requestHeader[key] = append(requestHeader[key], "")
			continue
		}
		value := strings.TrimSpace(line[separator+1:])
		if value == "" {
			requestHeader.Del(key)
			continue
		}
		requestHeader.Add(key, value)
	}
	override := make(http.Header, len(replaced))
	for key := range replaced {
		override[key] = append([]string(nil), requestHeader[key]...)
	}
	return requestHeader, override
}

// applyHeaderOverride restores the listed keys resty fills in by itself,
// such as User-Agent and Accept. An empty User-Agent makes net/http send none.
func applyHeaderOverride(_ *resty.Client, request *http.Request) error {
	override, loaded := request.Context().Value(headerOverrideKey{}).(http.Header)
	if !loaded {
		return nil
	}
	for key, values := range override {
		switch {
		case len(values) > 0:
			request.Header[key] = append([]string(nil), values...)
		case key == "User-Agent":
			request.Header[key] = []string{""}
		default:
			request.Header.Del(key)
		}
	}
	return nil
}
