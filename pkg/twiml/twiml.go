// Package twiml generates the call-routing documents the telephony
// provider fetches when a call arrives: media-stream connections, spoken
// prompts, digit menus, and dial forwarding. The bridge core consumes
// none of this; it only needs the stream URL these documents point at.
package twiml

import (
	"encoding/xml"
	"fmt"
)

// Response is the root element of a voice routing document.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Say     []Say    `xml:",omitempty"`
	Pause   *Pause   `xml:",omitempty"`
	Gather  *Gather  `xml:",omitempty"`
	Dial    *Dial    `xml:",omitempty"`
	Connect *Connect `xml:",omitempty"`
	Hangup  *Hangup  `xml:",omitempty"`
}

// Say speaks text to the caller with the provider's built-in voice.
type Say struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

// Pause waits silently for the given number of seconds.
type Pause struct {
	Length int `xml:"length,attr,omitempty"`
}

// Connect hands the call to a bidirectional media stream.
type Connect struct {
	Stream Stream `xml:"Stream"`
}

// Stream names the websocket endpoint that will carry the call audio.
type Stream struct {
	URL string `xml:"url,attr"`
}

// Dial forwards the call to another number.
type Dial struct {
	Number string `xml:",chardata"`
}

// Gather collects digits for a simple menu.
type Gather struct {
	NumDigits int    `xml:"numDigits,attr,omitempty"`
	Action    string `xml:"action,attr,omitempty"`
	Method    string `xml:"method,attr,omitempty"`
	Say       []Say  `xml:",omitempty"`
}

// Hangup ends the call.
type Hangup struct{}

// ConnectStream builds the document that routes an answered call into the
// bridge's media-stream endpoint, with an optional spoken line first.
func ConnectStream(streamURL, announcement string) *Response {
	r := &Response{
		Connect: &Connect{Stream: Stream{URL: streamURL}},
	}
	if announcement != "" {
		r.Say = []Say{{Text: announcement}}
		r.Pause = &Pause{Length: 1}
	}
	return r
}

// ForwardCall builds a document that forwards the call to another number.
func ForwardCall(number string) *Response {
	return &Response{Dial: &Dial{Number: number}}
}

// Menu builds a one-level digit menu that prompts and posts the chosen
// digit to action.
func Menu(prompt, action string, numDigits int) *Response {
	return &Response{
		Gather: &Gather{
			NumDigits: numDigits,
			Action:    action,
			Method:    "POST",
			Say:       []Say{{Text: prompt}},
		},
	}
}

// Reject builds a document that speaks a line and hangs up.
func Reject(message string) *Response {
	return &Response{
		Say:    []Say{{Text: message}},
		Hangup: &Hangup{},
	}
}

// Document renders the response as a complete XML document.
func (r *Response) Document() ([]byte, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("twiml: failed to render document: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
