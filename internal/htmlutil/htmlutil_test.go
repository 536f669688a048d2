package htmlutil

import (
	"reflect"
	"strings"
	"testing"
)

const testHTML = `
<html><head><title> 夜の歌 </title><style>.x{color:red}</style></head>
<body>
<script>var lyrics = "ignored";</script>
<div class="lyrics">
  あおい そらに<br>
  きみの こえ<br/>
  <!-- comment -->
  <span>とおく</span> ひびく
</div>
<p>Footer   text</p>
</body></html>
`

func TestTextLines(t *testing.T) {
	doc, err := LoadHTMLString(testHTML)
	if err != nil {
		t.Fatal(err)
	}
	got := DocumentLines(doc, "")
	want := []string{"あおい そらに", "きみの こえ", "とおく ひびく", "Footer text"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DocumentLines = %q, want %q", got, want)
	}
}

func TestDocumentLinesSelector(t *testing.T) {
	doc, err := LoadHTML(strings.NewReader(testHTML))
	if err != nil {
		t.Fatal(err)
	}
	got := DocumentLines(doc, ".lyrics")
	want := []string{"あおい そらに", "きみの こえ", "とおく ひびく"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DocumentLines(.lyrics) = %q, want %q", got, want)
	}
	if got := DocumentLines(doc, ".missing"); len(got) != 0 {
		t.Errorf("DocumentLines(.missing) = %q, want none", got)
	}
}

func TestTitle(t *testing.T) {
	doc, err := LoadHTMLString(testHTML)
	if err != nil {
		t.Fatal(err)
	}
	if got := Title(doc); got != "夜の歌" {
		t.Errorf("Title = %q", got)
	}
}

func TestTextLinesTable(t *testing.T) {
	doc, err := LoadHTMLString(`<table><tr><td>いち</td><td>に</td></tr><tr><td>さん</td></tr></table>`)
	if err != nil {
		t.Fatal(err)
	}
	got := TextLines(doc.Find("table"))
	want := []string{"いち", "に", "さん"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TextLines = %q, want %q", got, want)
	}
}
