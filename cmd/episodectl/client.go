package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

func runSearch(apiURL, status, query string, out io.Writer) error {
	q := url.Values{}
	q.Set("status", status)
	q.Set("q", query)
	return getJSON(apiURL+"/api/episodes/search?"+q.Encode(), out)
}

func runSuggest(apiURL, field, query string, out io.Writer) error {
	q := url.Values{}
	q.Set("field", field)
	if query != "" {
		q.Set("q", query)
	}
	return getJSON(apiURL+"/api/suggestions?"+q.Encode(), out)
}

func runValidateTag(apiURL, name string, out io.Writer) error {
	body, _ := json.Marshal(map[string]string{"name": name})
	resp, err := http.Post(apiURL+"/api/tags/validate", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	return copyResponse(resp, out)
}

func getJSON(fullURL string, out io.Writer) error {
	resp, err := http.Get(fullURL)
	if err != nil {
		return err
	}
	return copyResponse(resp, out)
}

func copyResponse(resp *http.Response, out io.Writer) error {
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}
	_, err := io.Copy(out, resp.Body)
	return err
}
