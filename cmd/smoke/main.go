// Command smoke exercises a running docgraph server end to end.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

type report struct {
	Counts    map[string]int `json:"counts"`
	Documents []struct {
		Path    string `json:"path"`
		Outcome string `json:"outcome"`
	} `json:"documents"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "docgraph server URL")
	path := flag.String("path", "", "file or directory to ingest, as seen by the server")
	wait := flag.Duration("wait", 2*time.Second, "delay before the first request")
	flag.Parse()

	if *path == "" {
		fmt.Println("usage: smoke -path <corpus> [-url http://localhost:8080]")
		os.Exit(2)
	}
	time.Sleep(*wait)
	client := &http.Client{Timeout: 10 * time.Minute}

	fmt.Println("1. Health...")
	if _, ok := send(client, http.MethodGet, *baseURL+"/healthz", nil); !ok {
		fail("health")
	}
	fmt.Println("PASSED: health")

	fmt.Println("2. Ingest...")
	first := ingest(client, *baseURL, *path)
	if first.Counts["failed"] > 0 {
		fail("ingest reported failures")
	}
	fmt.Printf("PASSED: ingest %v\n", first.Counts)

	fmt.Println("3. Re-ingest...")
	second := ingest(client, *baseURL, *path)
	if second.Counts["committed"] != 0 {
		fail("re-ingest committed documents again")
	}
	fmt.Println("PASSED: re-ingest")

	fmt.Println("4. Status...")
	for _, d := range second.Documents {
		if d.Outcome == "skipped" {
			continue
		}
		body, ok := send(client, http.MethodGet, *baseURL+"/documents/status?path="+url.QueryEscape(d.Path), nil)
		if !ok {
			fail("status " + d.Path)
		}
		var st struct {
			Processed bool `json:"processed"`
		}
		if err := json.Unmarshal(body, &st); err != nil || !st.Processed {
			fail("status " + d.Path)
		}
	}
	fmt.Println("PASSED: status")
}

func ingest(client *http.Client, baseURL, path string) report {
	body, ok := send(client, http.MethodPost, baseURL+"/ingest", map[string]string{"path": path})
	if !ok {
		fail("ingest")
	}
	var r report
	if err := json.Unmarshal(body, &r); err != nil {
		fmt.Printf("decode report: %v\n", err)
		fail("ingest")
	}
	return r
}

func fail(step string) {
	fmt.Printf("FAILED: %s\n", step)
	os.Exit(1)
}

func send(client *http.Client, method, endpoint string, payload interface{}) ([]byte, bool) {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Response Status: %s\n", resp.Status)
	if resp.StatusCode >= 300 {
		fmt.Printf("Response Body: %s\n", string(respBody))
		return respBody, false
	}
	return respBody, true
}
