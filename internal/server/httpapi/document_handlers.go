package httpapi

import (
	"net/http"
	"strings"

	"github.com/docgate/docgate/internal/server/services"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is the slack allowed on top of MaxUploadSize for the
// multipart framing of an upload.
const multipartOverhead = 1 << 20

func (a *API) ListDocuments(c *gin.Context) {
	refs, err := a.documents.List(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}

	out := make([]documentDTO, 0, len(refs))
	for _, r := range refs {
		out = append(out, toDocumentDTO(r))
	}
	ok(c, http.StatusOK, out, "")
}

func (a *API) DocumentURL(c *gin.Context) {
	u, err := a.documents.IssueSignedURL(c.Request.Context(), c.Param("name"))
	if err != nil {
		a.fail(c, err)
		return
	}
	ok(c, http.StatusOK, signedURLDTO{URL: u.URL, ExpiresAt: u.ExpiresAt}, "")
}

// StreamDocument accepts the token from the query string so the URL can be
// handed straight to an embedded viewer, but still requires an identity.
func (a *API) StreamDocument(c *gin.Context) {
	if _, ok := IdentityFrom(c); !ok {
		a.fail(c, errAuthRequired)
		return
	}

	err := a.documents.StreamTo(c.Request.Context(), c.Param("name"), c.GetHeader("Range"), c.Writer)
	if err == nil {
		return
	}
	if c.Writer.Written() {
		a.logger.Warn(c.Request.Context(), "stream failed after headers were sent", "name", c.Param("name"), "error", err)
		c.Abort()
		return
	}
	a.fail(c, err)
}

func (a *API) UploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxUploadSize+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		a.fail(c, badRequest("multipart field \"file\" is required and must not exceed 50 MiB"))
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = fh.Filename
	}

	f, err := fh.Open()
	if err != nil {
		a.fail(c, badRequest("could not read uploaded file"))
		return
	}
	defer f.Close()

	ref, err := a.documents.Upload(c.Request.Context(), name, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		a.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, toDocumentDTO(*ref), "document uploaded")
}

func (a *API) DeleteDocument(c *gin.Context) {
	if err := a.documents.Delete(c.Request.Context(), c.Param("name")); err != nil {
		a.fail(c, err)
		return
	}
	ok(c, http.StatusOK, nil, "document deleted")
}

func (a *API) DeleteDocuments(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, badRequest("invalid request body"))
		return
	}

	res, err := a.documents.DeleteMany(c.Request.Context(), req.Names)
	if err != nil {
		a.fail(c, err)
		return
	}
	ok(c, http.StatusOK, toBulkDeleteDTO(res), "")
}
