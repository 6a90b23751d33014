package ui

import "io"

// File is the first entry of the page's file-selection control.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// Page is the part of the document the handlers read and mutate.
type Page interface {
	// SelectedFile reports the first selected file, if any.
	SelectedFile() (File, bool)
	// ShowImage sets the image source, shows the image and hides the
	// placeholder. The two elements are never visible together.
	ShowImage(src string)
	SetCounts(rbc, wbc, platelets string)
	// Alert shows a blocking notification.
	Alert(msg string)
}

// ObjectURLs hands out local references to file bytes.
type ObjectURLs interface {
	Create(f File) string
	Revoke(url string)
}
