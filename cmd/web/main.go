//go:build js && wasm

// Command web is the uploader page compiled to WebAssembly. It binds the
// page's elements to the ui handlers and exports previewImage and
// uploadImage for the markup to call.
package main

import (
	"context"
	"syscall/js"

	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/hemacount/internal/client"
	"github.com/Brownie44l1/hemacount/internal/ui"
)

func main() {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{DisableColors: true, DisableTimestamp: true})
	logger.SetOutput(consoleWriter{})

	doc := js.Global().Get("document")
	page := newDOMPage(doc)
	origin := js.Global().Get("location").Get("origin").String()

	controller := ui.NewController(page, objectURLs{},
		client.New(origin, client.WithLogger(logger)),
		ui.WithLogger(logger))

	previewImage := js.FuncOf(func(this js.Value, args []js.Value) any {
		controller.Preview()
		return nil
	})
	uploadImage := js.FuncOf(func(this js.Value, args []js.Value) any {
		run, ok := controller.StartUpload()
		if ok {
			// the fetch underneath must not run on the event loop goroutine
			go run(context.Background())
		}
		return nil
	})
	teardown := js.FuncOf(func(this js.Value, args []js.Value) any {
		controller.Close()
		return nil
	})

	js.Global().Set("previewImage", previewImage)
	js.Global().Set("uploadImage", uploadImage)
	js.Global().Call("addEventListener", "beforeunload", teardown)

	select {}
}
