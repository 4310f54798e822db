package openapi_server

type Health struct {
	Status     string `json:"status"`
	GraphReady bool   `json:"graph_ready"`
	Nodes      int    `json:"nodes"`
	Edges      int    `json:"edges"`
}

type Message struct {
	Message string `json:"message"`
}
