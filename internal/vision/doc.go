// Package vision provides the analysis services behind the pipeline.
//
// LocalService runs every stage in-process with the detectors from package
// detection, the PDF text layer and Tesseract OCR. HTTPClient forwards the
// same requests to a remote analysis endpoint. Both implement
// pipeline.Service, so submissions return a handle at once and results are
// collected by polling.
//
// # Remote protocol
//
// HTTPClient speaks a small asynchronous protocol:
//
//	POST {endpoint}/analyze        body: pipeline.Request as JSON
//	  -> 202, Operation-Location: {operation URL}   (or body {"id": ...})
//	GET  {operation URL}
//	  -> 200, {"status": "running" | "succeeded" | "failed",
//	           "result": {"lines": [...], "regions": [...]}, "error": "..."}
//
// Status values are matched case-insensitively and "notStarted" counts as
// running.
package vision
