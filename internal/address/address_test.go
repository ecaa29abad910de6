package address

import "testing"

var berlin = Address{
	Name:     "Store & Co",
	Street:   []string{"Unter den Linden 1", ""},
	City:     "Berlin",
	Postcode: "10117",
	Country:  "Germany",
}

func TestPlain(t *testing.T) {
	exp := "Store & Co\nUnter den Linden 1\n10117 Berlin\nGermany"
	if p := berlin.Plain(); p != exp {
		t.Fatalf("unexpected plain address %q", p)
	}
}

func TestHTML(t *testing.T) {
	exp := "Store &amp; Co<br>Unter den Linden 1<br>10117 Berlin<br>Germany"
	if h := berlin.HTML(); h != exp {
		t.Fatalf("unexpected html address %q", h)
	}
}

func TestInline(t *testing.T) {
	a := Address{Street: []string{"Line 1\r\nLine 2", "Line 3\rLine 4"}}
	if i := a.Inline(); i != "Line 1,Line 2,Line 3,Line 4" {
		t.Fatalf("unexpected inline address %q", i)
	}
}

func TestDirectionsURL(t *testing.T) {
	exp := "https://www.google.com/maps/place/Store+%26+Co%2CUnter+den+Linden+1%2C10117+Berlin%2CGermany/@52.5163,13.3777,17z"
	if u := DirectionsURL(berlin, 52.5163, 13.3777); u != exp {
		t.Fatalf("unexpected directions url %q", u)
	}
}

func TestIsEmpty(t *testing.T) {
	if !(Address{Street: []string{" "}}).IsEmpty() {
		t.Fatalf("expected blank address to be empty")
	}
	if berlin.IsEmpty() {
		t.Fatalf("expected address not to be empty")
	}
}
