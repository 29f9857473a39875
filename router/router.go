package router

import (
	"net/http"

	"notedesk/handler"
	"notedesk/internal/store"
	"notedesk/middleware"
	"notedesk/socket"
)

func Setup(st *store.Store, hub *socket.Hub) http.Handler {
	mux := http.NewServeMux()

	// Changes feed
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r)
	})

	// REST API
	docHandler := handler.NewDocumentHandler(st, hub)

	mux.Handle("/api/documents/create", http.HandlerFunc(docHandler.CreateDocument))
	mux.Handle("/api/documents/get", http.HandlerFunc(docHandler.GetDocument))
	mux.Handle("/api/documents/update", http.HandlerFunc(docHandler.UpdateDocument))
	mux.Handle("/api/documents/delete", http.HandlerFunc(docHandler.DeleteDocument))
	mux.Handle("/api/documents", http.HandlerFunc(docHandler.GetDocuments))

	return middleware.CORSMiddleware(mux)
}
