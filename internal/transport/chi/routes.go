package chi

import (
	"fmt"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface is the HTTP API surface.
type ServerInterface interface {
	// (POST /api/v1/documents)
	UploadDocument(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/documents)
	ListDocuments(w http.ResponseWriter, r *http.Request, params ListDocumentsParams)
	// (GET /api/v1/documents/{id})
	GetDocument(w http.ResponseWriter, r *http.Request, id string)
	// (DELETE /api/v1/documents/{id})
	DeleteDocument(w http.ResponseWriter, r *http.Request, id string)
	// (POST /api/v1/documents/reindex)
	ReindexDocuments(w http.ResponseWriter, r *http.Request)
	// (DELETE /api/v1/index)
	ClearIndex(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/generate)
	Generate(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/retrieval)
	Retrieval(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/chat)
	Chat(w http.ResponseWriter, r *http.Request)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// ListDocumentsParams are the query parameters of ListDocuments.
type ListDocumentsParams struct {
	DocType *string `form:"docType,omitempty" json:"docType,omitempty"`
}

// InvalidParamFormatError reports a parameter that could not be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ServerInterfaceWrapper binds parameters before calling the handler.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// ListDocuments binds the docType query parameter.
func (siw *ServerInterfaceWrapper) ListDocuments(w http.ResponseWriter, r *http.Request) {
	var params ListDocumentsParams
	if err := runtime.BindQueryParameter("form", true, false, "docType", r.URL.Query(), &params.DocType); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "docType", Err: err})
		return
	}
	siw.Handler.ListDocuments(w, r, params)
}

// GetDocument binds the id path parameter.
func (siw *ServerInterfaceWrapper) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.Handler.GetDocument(w, r, id)
}

// DeleteDocument binds the id path parameter.
func (siw *ServerInterfaceWrapper) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.Handler.DeleteDocument(w, r, id)
}

func (siw *ServerInterfaceWrapper) bindID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", gochi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return "", false
	}
	return id, true
}

// RouterOptions configure HandlerWithOptions.
type RouterOptions struct {
	BaseRouter       gochi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts every route of si on the base router.
func HandlerWithOptions(si ServerInterface, options RouterOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = gochi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		}
	}
	wrapper := ServerInterfaceWrapper{Handler: si, ErrorHandlerFunc: options.ErrorHandlerFunc}

	r.Route("/api/v1", func(r gochi.Router) {
		r.Post("/documents", si.UploadDocument)
		r.Get("/documents", wrapper.ListDocuments)
		r.Post("/documents/reindex", si.ReindexDocuments)
		r.Get("/documents/{id}", wrapper.GetDocument)
		r.Delete("/documents/{id}", wrapper.DeleteDocument)
		r.Delete("/index", si.ClearIndex)
		r.Post("/generate", si.Generate)
		r.Post("/retrieval", si.Retrieval)
		r.Post("/chat", si.Chat)
	})
	r.Get("/health", si.HealthCheck)
	r.Get("/metrics", si.Metrics)
	return r
}
