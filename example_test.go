package pdfgraph_test

import (
	"fmt"
	"log"
	"os"

	"github.com/tsawler/pdfgraph"
	"github.com/tsawler/pdfgraph/reader"
)

// These examples document the fluent API. They are not run because they
// need files.

func Example_catalog() {
	doc := pdfgraph.Open("document.pdf")
	defer doc.Close()

	catalog, warnings, err := doc.Catalog()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(catalog.Get("Type"))

	for _, w := range warnings {
		fmt.Println("Warning:", w.Message)
	}
}

func Example_objects() {
	doc := pdfgraph.Open("document.pdf").Strict().MaxDepth(50)
	defer doc.Close()

	objects, _, err := doc.Objects()
	if err != nil {
		log.Fatal(err)
	}
	for _, obj := range objects {
		fmt.Printf("%s: %s\n", obj.Ref, obj.Object.Type())
	}
}

func Example_rewrite() {
	out, err := os.Create("compressed.pdf")
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	n, warnings, err := pdfgraph.Open("secret.pdf").
		Password("owner").
		Compress().
		Encrypt("reader", "admin", true).
		Rewrite(out)
	if err != nil {
		log.Fatal(err)
	}
	if len(warnings) > 0 {
		log.Println("Warnings:", pdfgraph.FormatWarnings(warnings))
	}
	fmt.Println(n, "bytes written")
}

func Example_fromReader() {
	r, err := reader.Open("document.pdf", reader.WithStrict(true))
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	info := pdfgraph.MustValue(pdfgraph.FromReader(r).Info())
	fmt.Println(info.Get("Title"))
}

func Example_pages() {
	doc := pdfgraph.Open("document.pdf").MaxDepth(64)
	defer doc.Close()

	list, _, err := doc.Pages()
	if err != nil {
		log.Fatal(err)
	}
	for i, p := range list {
		w, _ := p.Width()
		h, _ := p.Height()
		fmt.Printf("page %d: %.0fx%.0f rotated %d\n", i+1, w, h, p.Rotate())
	}
}
