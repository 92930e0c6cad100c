package api

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/tidwall/gjson"
)

// Format identifies how a response body is parsed.
type Format int

const (
	// FormatXML parses the body into a Node tree (v1 API).
	FormatXML Format = iota
	// FormatJSON keeps the body as JSON (v2.2 API).
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "xml"
}

// Envelope is a parsed response, normalised to the fields the pipeline
// classifies on.
type Envelope struct {
	Format     Format
	StatusCode int
	// OK reports whether the service marked the call as successful.
	OK bool
	// Code and Message carry the service error on failure.
	Code    string
	Message string
	// Root is the document element for XML responses.
	Root *Node
	// Raw is the response body.
	Raw []byte
}

// Get returns the JSON value at a gjson path. It returns an empty result for
// XML envelopes.
func (e *Envelope) Get(path string) gjson.Result {
	if e == nil || e.Format != FormatJSON {
		return gjson.Result{}
	}
	return gjson.GetBytes(e.Raw, path)
}

// Decode unmarshals a JSON envelope into v.
func (e *Envelope) Decode(v any) error {
	if e == nil || e.Format != FormatJSON {
		return errors.New("envelope is not JSON")
	}
	return json.Unmarshal(e.Raw, v)
}

// parseEnvelope parses body according to format.
func parseEnvelope(format Format, statusCode int, body []byte) (*Envelope, error) {
	if format == FormatJSON {
		return parseJSONEnvelope(statusCode, body)
	}
	return parseXMLEnvelope(statusCode, body)
}

// parseXMLEnvelope reads <response status="..."> with error_code and
// error_message children on failure.
func parseXMLEnvelope(statusCode int, body []byte) (*Envelope, error) {
	root, err := ParseXML(body)
	if err != nil {
		return nil, err
	}

	env := &Envelope{
		Format:     FormatXML,
		StatusCode: statusCode,
		Root:       root,
		Raw:        body,
		OK:         root.Attr("status") == "success",
	}
	if !env.OK {
		env.Code = root.Find("error_code").TrimmedText()
		env.Message = root.Find("error_message").Text()
	}
	return env, nil
}

// parseJSONEnvelope treats any 2xx as success. Failures carry the HTTP
// status as the code and the first entry of "errors" as the message.
func parseJSONEnvelope(statusCode int, body []byte) (*Envelope, error) {
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON body")
	}

	env := &Envelope{
		Format:     FormatJSON,
		StatusCode: statusCode,
		Raw:        body,
		OK:         statusCode >= 200 && statusCode < 300,
	}
	if !env.OK {
		env.Code = strconv.Itoa(statusCode)
		msg := gjson.GetBytes(body, "errors.0")
		if !msg.Exists() {
			msg = gjson.GetBytes(body, "error")
		}
		env.Message = msg.String()
	}
	return env, nil
}
