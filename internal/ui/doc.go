// Package ui holds the two page handlers of the uploader: previewing the
// selected image locally and submitting it for prediction. The document
// itself is reached through the Page, File and ObjectURLs ports so the
// handlers run the same under js/wasm and in tests.
package ui
