//go:build js && wasm

package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"syscall/js"

	"github.com/Brownie44l1/hemacount/internal/ui"
)

type domPage struct {
	input       js.Value
	preview     js.Value
	placeholder js.Value
	rbc         js.Value
	wbc         js.Value
	platelets   js.Value
}

func newDOMPage(doc js.Value) *domPage {
	byID := func(id string) js.Value {
		return doc.Call("getElementById", id)
	}
	return &domPage{
		input:       byID("imageInput"),
		preview:     byID("preview"),
		placeholder: byID("placeholder"),
		rbc:         byID("rbcCount"),
		wbc:         byID("wbcCount"),
		platelets:   byID("plateletCount"),
	}
}

func (p *domPage) SelectedFile() (ui.File, bool) {
	files := p.input.Get("files")
	if files.IsNull() || files.IsUndefined() || files.Get("length").Int() == 0 {
		return nil, false
	}
	return jsFile{v: files.Index(0)}, true
}

func (p *domPage) ShowImage(src string) {
	p.preview.Set("src", src)
	p.preview.Get("style").Set("display", "block")
	p.placeholder.Get("style").Set("display", "none")
}

func (p *domPage) SetCounts(rbc, wbc, platelets string) {
	p.rbc.Set("innerText", rbc)
	p.wbc.Set("innerText", wbc)
	p.platelets.Set("innerText", platelets)
}

func (p *domPage) Alert(msg string) {
	js.Global().Call("alert", msg)
}

type jsFile struct {
	v js.Value
}

func (f jsFile) Name() string {
	return f.v.Get("name").String()
}

// Open reads the whole file through Blob.arrayBuffer.
func (f jsFile) Open() (io.ReadCloser, error) {
	buf, err := await(f.v.Call("arrayBuffer"))
	if err != nil {
		return nil, err
	}
	arr := js.Global().Get("Uint8Array").New(buf)
	data := make([]byte, arr.Get("length").Int())
	js.CopyBytesToGo(data, arr)
	return io.NopCloser(bytes.NewReader(data)), nil
}

type objectURLs struct{}

func (objectURLs) Create(f ui.File) string {
	return js.Global().Get("URL").Call("createObjectURL", f.(jsFile).v).String()
}

func (objectURLs) Revoke(url string) {
	js.Global().Get("URL").Call("revokeObjectURL", url)
}

// await blocks the calling goroutine until promise settles.
func await(promise js.Value) (js.Value, error) {
	type outcome struct {
		v   js.Value
		err error
	}
	done := make(chan outcome, 1)

	onResolve := js.FuncOf(func(this js.Value, args []js.Value) any {
		done <- outcome{v: args[0]}
		return nil
	})
	defer onResolve.Release()
	onReject := js.FuncOf(func(this js.Value, args []js.Value) any {
		done <- outcome{err: errors.New(args[0].Call("toString").String())}
		return nil
	})
	defer onReject.Release()

	promise.Call("then", onResolve, onReject)
	o := <-done
	return o.v, o.err
}

// consoleWriter sends log lines to the browser console.
type consoleWriter struct{}

func (consoleWriter) Write(p []byte) (int, error) {
	js.Global().Get("console").Call("log", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
