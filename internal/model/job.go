package model

// JobPayload is the unit of work handed to the async dispatcher and
// delivered back through the worker callback. Large payloads are staged
// in the blob store and referenced; small ones travel inline.
type JobPayload struct {
	QueueID  string `json:"queue_id"`
	Filename string `json:"filename"`
	BlobRef  string `json:"blob_ref,omitempty"`
	FileData []byte `json:"file_data,omitempty"`
}
