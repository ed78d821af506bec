package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authkit/internal/auth"
	"github.com/dropDatabas3/authkit/internal/httpapi/apperrors"
	"github.com/dropDatabas3/authkit/internal/httpapi/dto"
)

// AdminController expone las operaciones administrativas. El router monta
// todo el grupo detrás de authn + RequireAdmin.
type AdminController struct {
	svc *auth.Service
}

func NewAdminController(svc *auth.Service) *AdminController {
	return &AdminController{svc: svc}
}

// DeleteUser borra una cuenta por id. Borrar el registro repudia también
// todos sus refresh tokens (el set de jtis se va con él).
func (c *AdminController) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, r, apperrors.ErrBadRequest.WithDetail("falta el id de usuario"))
		return
	}
	if err := c.svc.DeleteUser(r.Context(), id); err != nil {
		respondError(w, r, mapAuthErr(err))
		return
	}
	respond(w, r, http.StatusOK, dto.MessageResponse{Message: "usuario eliminado"})
}
