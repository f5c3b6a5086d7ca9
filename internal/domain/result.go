package domain

import "encoding/json"

// Status is the delivery outcome of an admitted dispatch.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) String() string { return string(s) }

// Result reports the delivery outcome of an admitted dispatch.
// ProviderID and MessageID are set on success, Error on failure. ID is the
// dispatcher-assigned identity and is not part of the JSON body.
type Result struct {
	Status     Status
	ProviderID int
	MessageID  string
	Error      string
	ID         MessageID
}

func SuccessResult(providerID int, messageID string) Result {
	return Result{Status: StatusSuccess, ProviderID: providerID, MessageID: messageID}
}

func FailedResult(err error) Result {
	msg := ErrAllProvidersFailed.Error()
	if err != nil {
		msg = err.Error()
	}
	return Result{Status: StatusFailed, ProviderID: -1, Error: msg}
}

func (r Result) Succeeded() bool { return r.Status == StatusSuccess }

type successPayload struct {
	Status     Status `json:"status"`
	ProviderID int    `json:"providerId"`
	MessageID  string `json:"messageId"`
}

type failedPayload struct {
	Status Status `json:"status"`
	Error  string `json:"error"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Succeeded() {
		return json.Marshal(successPayload{Status: r.Status, ProviderID: r.ProviderID, MessageID: r.MessageID})
	}
	return json.Marshal(failedPayload{Status: r.Status, Error: r.Error})
}
