package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url, token string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{} // No timeout, generation can be slow
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

func main() {
	userToken := os.Getenv("TEST_USER_TOKEN")
	if userToken == "" {
		color.Red("TEST_USER_TOKEN is not set")
		os.Exit(1)
	}

	color.Cyan("🚀 Starting Chat API Flow Test\n")

	// 1. Create Session
	color.Yellow("\n[USER] 1. Create Chat Session")
	resp, body, err := sendRequest("POST", "/chat/v1/session", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var createResp map[string]interface{}
	json.Unmarshal(body, &createResp)
	prettyPrint(createResp)

	var sessionID string
	if data, ok := createResp["data"].(map[string]interface{}); ok {
		if id, ok := data["session_id"].(string); ok {
			sessionID = id
		}
	}
	if sessionID == "" {
		color.Red("No session_id in response")
		os.Exit(1)
	}

	// 2. Send Message
	color.Yellow("\n[USER] 2. Send Message")
	msgReq := map[string]interface{}{
		"message": "I have been feeling anxious about work lately.",
	}
	resp, body, err = sendRequest("POST", "/chat/v1/session/"+sessionID+"/message", userToken, msgReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var msgResp map[string]interface{}
	json.Unmarshal(body, &msgResp)
	prettyPrint(msgResp)

	// 3. Get History
	color.Yellow("\n[USER] 3. Get Session History")
	resp, body, err = sendRequest("GET", "/chat/v1/session/"+sessionID+"/history", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var histResp map[string]interface{}
	json.Unmarshal(body, &histResp)
	prettyPrint(histResp)

	// 4. List Sessions
	color.Yellow("\n[USER] 4. List Sessions")
	resp, body, err = sendRequest("GET", "/chat/v1/sessions", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var listResp map[string]interface{}
	json.Unmarshal(body, &listResp)
	prettyPrint(listResp)

	// 5. End Session
	color.Yellow("\n[USER] 5. End Session")
	resp, body, err = sendRequest("POST", "/chat/v1/session/"+sessionID+"/end", userToken, nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var endResp map[string]interface{}
	json.Unmarshal(body, &endResp)
	prettyPrint(endResp)

	// 6. Sending to an ended session should be rejected
	color.Yellow("\n[USER] 6. Send to Ended Session (expect 409)")
	resp, body, err = sendRequest("POST", "/chat/v1/session/"+sessionID+"/message", userToken, msgReq)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	var rejectedResp map[string]interface{}
	json.Unmarshal(body, &rejectedResp)
	prettyPrint(rejectedResp)

	color.Cyan("\n✅ Chat API Flow Test Completed")
}
