package api

import (
	"bytes"

	"github.com/goccy/go-json"
)

type TextItem struct {
	Text string `json:"text"`
}

type RequestData struct {
	Items []TextItem `json:"items"`
}

func (r RequestData) Texts() []string {
	texts := make([]string, len(r.Items))
	for i, item := range r.Items {
		texts[i] = item.Text
	}
	return texts
}

// decodeRequest parses a classify body. It returns errNoJSON when the body
// holds no JSON value and a *ValidationError listing every mismatch when the
// value does not have the RequestData shape. Unknown fields are ignored.
func decodeRequest(body []byte) (RequestData, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return RequestData{}, errNoJSON
	}
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return RequestData{}, errNoJSON
	}
	req, errs := validateRequest(raw)
	if len(errs) > 0 {
		return RequestData{}, &ValidationError{Errors: errs}
	}
	return req, nil
}

func validateRequest(raw any) (RequestData, []FieldError) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return RequestData{}, []FieldError{{
			Type:  errTypeModel,
			Loc:   []any{},
			Msg:   "Input should be a valid dictionary or instance of RequestData",
			Input: raw,
		}}
	}

	rawItems, ok := obj["items"]
	if !ok {
		return RequestData{}, []FieldError{{
			Type:  errTypeMissing,
			Loc:   []any{"items"},
			Msg:   "Field required",
			Input: obj,
		}}
	}
	list, ok := rawItems.([]any)
	if !ok {
		return RequestData{}, []FieldError{{
			Type:  errTypeList,
			Loc:   []any{"items"},
			Msg:   "Input should be a valid list",
			Input: rawItems,
		}}
	}

	var errs []FieldError
	req := RequestData{Items: make([]TextItem, len(list))}
	for i, rawItem := range list {
		item, ok := rawItem.(map[string]any)
		if !ok {
			errs = append(errs, FieldError{
				Type:  errTypeModel,
				Loc:   []any{"items", i},
				Msg:   "Input should be a valid dictionary or instance of TextItem",
				Input: rawItem,
			})
			continue
		}
		rawText, ok := item["text"]
		if !ok {
			errs = append(errs, FieldError{
				Type:  errTypeMissing,
				Loc:   []any{"items", i, "text"},
				Msg:   "Field required",
				Input: item,
			})
			continue
		}
		text, ok := rawText.(string)
		if !ok {
			errs = append(errs, FieldError{
				Type:  errTypeString,
				Loc:   []any{"items", i, "text"},
				Msg:   "Input should be a valid string",
				Input: rawText,
			})
			continue
		}
		req.Items[i].Text = text
	}
	return req, errs
}
