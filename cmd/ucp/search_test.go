package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestSearchCmd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		var q struct {
			Query   string   `json:"query"`
			Limit   int      `json:"limit"`
			Session *string  `json:"session"`
			Tags    []string `json:"tags"`
		}
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Errorf("decode: %v", err)
		}
		if q.Query != "where is it" || q.Limit != 3 {
			t.Errorf("unexpected query %+v", q)
		}
		if q.Session == nil || *q.Session != "s1" {
			t.Errorf("session = %v, want s1", q.Session)
		}
		_, _ = io.WriteString(w, `{"results":[{"id":"a","content":"first line\nsecond","score":0.75}],"total":1,"took":2}`)
	})
	setupCLITest(t, mux)

	out, _, err := runCLI(t, nil, "search", "where", "is", "it", "-n", "3", "--session", "s1")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "a (0.750): first line ...") {
		t.Errorf("output = %q", out)
	}
}

func TestSearchCmdNoResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":[],"total":0,"took":0}`)
	})
	setupCLITest(t, mux)

	out, _, err := runCLI(t, nil, "search", "nothing")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "No results found") {
		t.Errorf("output = %q", out)
	}
}

func TestSearchCmdStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/search/stream", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"a","content":"x","score":0.5}`+"\nnope\n"+`{"id":"b","content":"y"}`+"\n")
	})
	setupCLITest(t, mux)

	out, errOut, err := runCLI(t, nil, "search", "q", "--stream")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "a (0.500): x") || !strings.Contains(out, "b (-): y") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(errOut, "skipping: decode line 2") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestSearchCmdStreamJSON(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/search/stream", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"a","content":"x"}`+"\n")
	})
	setupCLITest(t, mux)

	out, _, err := runCLI(t, nil, "search", "q", "--stream", "--json")
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	var mem struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &mem); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if mem.ID != "a" {
		t.Errorf("id = %q", mem.ID)
	}
}

func TestSearchCmdServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"index offline"}`)
	})
	setupCLITest(t, mux)

	_, _, err := runCLI(t, nil, "search", "q")
	if err == nil || !strings.Contains(err.Error(), "index offline") {
		t.Errorf("err = %v", err)
	}
}
