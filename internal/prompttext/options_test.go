package prompttext

import "testing"

func TestSplitOptionsFindsTrailingRun(t *testing.T) {
	main, tail, ok := SplitOptions("A cat in a garden --ar 16:9 --chaos 20")
	if !ok {
		t.Fatal("expected options to be detected")
	}
	if main != "A cat in a garden" {
		t.Fatalf("unexpected main text: %q", main)
	}
	if tail != " --ar 16:9 --chaos 20" {
		t.Fatalf("unexpected tail: %q", tail)
	}
}

func TestSplitOptionsRoundTrip(t *testing.T) {
	inputs := []string{
		"lone pine on a cliff --ar 9:16",
		"neon alley --s 250 --weird 1000",
		"temple garden --q 2 --chaos 50 --ar 4:3",
		"--ar 16:9",
	}
	for _, in := range inputs {
		main, tail, ok := SplitOptions(in)
		if !ok {
			t.Fatalf("SplitOptions(%q): expected ok", in)
		}
		joined := main + tail
		if main == "" {
			joined = joined[1:] // leading separator space with empty body
		}
		if joined != in {
			t.Fatalf("round trip mismatch: got %q want %q", joined, in)
		}
	}
}

func TestSplitOptionsRejectsMalformedRuns(t *testing.T) {
	inputs := []string{
		"",
		"a plain prompt with no options",
		"broken tail --ar 16:9 trailing words",
		"orphan value --ar 16:9 stray --unknown 5",
	}
	for _, in := range inputs {
		main, tail, ok := SplitOptions(in)
		if ok {
			t.Fatalf("SplitOptions(%q): expected no clean parse", in)
		}
		if tail != "" {
			t.Fatalf("SplitOptions(%q): expected empty tail, got %q", in, tail)
		}
		if in != "" && main == "" {
			t.Fatalf("SplitOptions(%q): main text lost", in)
		}
	}
}

func TestStripOptionsRemovesEveryOccurrence(t *testing.T) {
	got := StripOptions("A cat --ar 16:9 in a garden --chaos 20")
	if got != "A cat in a garden" {
		t.Fatalf("unexpected strip result: %q", got)
	}
}

func TestStripOptionsIsIdempotent(t *testing.T) {
	inputs := []string{
		"A cat in a garden --ar 16:9 --chaos 20",
		"plain text",
		"--s 100",
		"  extra   spacing --weird 500  ",
	}
	for _, in := range inputs {
		once := StripOptions(in)
		twice := StripOptions(once)
		if once != twice {
			t.Fatalf("strip not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestStripOptionsKeepsFlagLikeSuccessor(t *testing.T) {
	// A following token starting with a dash is not a value and must survive.
	got := StripOptions("scene --ar --s 50 end")
	if got != "scene end" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestInheritOptionsReattachesOriginalTail(t *testing.T) {
	got := InheritOptions("old prompt --ar 16:9", "new prompt --chaos 80")
	if got != "new prompt --ar 16:9" {
		t.Fatalf("unexpected inherit result: %q", got)
	}
}

func TestInheritOptionsStripsWhenOriginalHasNone(t *testing.T) {
	got := InheritOptions("old prompt", "new prompt --chaos 80")
	if got != "new prompt" {
		t.Fatalf("unexpected inherit result: %q", got)
	}
}
