package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dog-catalog/internal/domain"
	httpez "dog-catalog/internal/transport/http/ez"
	resp "dog-catalog/internal/transport/http/response"
)

type catalog interface {
	List(ctx context.Context, breed string) ([]domain.Listing, error)
	Get(ctx context.Context, id string) (*domain.Listing, error)
	Create(ctx context.Context, in domain.CreateListing) (*domain.Listing, error)
	Update(ctx context.Context, id string, in domain.UpdateListing) (*domain.Listing, error)
	Delete(ctx context.Context, id string) error
}

// ListingHandler 公开读 + 管理员写
type ListingHandler struct {
	svc catalog
	log *zap.Logger
}

func NewListingHandler(svc catalog, l *zap.Logger) *ListingHandler {
	return &ListingHandler{svc: svc, log: l}
}

func (h *ListingHandler) Priority() int { return 20 }

const dogNotFound = "Dog not found"

type listQuery struct {
	Breed string `form:"breed"`
}

func (h *ListingHandler) MountAPI(g *gin.RouterGroup) {
	ez := httpez.New(g, h.log)

	httpez.RegisterAction(ez, httpez.Action[listQuery, []domain.Listing]{
		Method: http.MethodGet,
		Path:   "/listings",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *listQuery) ([]domain.Listing, error) {
			return h.svc.List(c.Request.Context(), in.Breed)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, *domain.Listing]{
		Method:      http.MethodGet,
		Path:        "/listings/:id",
		Binder:      httpez.BindNone,
		NotFoundMsg: dogNotFound,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Listing, error) {
			return h.svc.Get(c.Request.Context(), c.Param("id"))
		},
	})

	httpez.RegisterAction(ez, httpez.Action[domain.CreateListing, *domain.Listing]{
		Method: http.MethodPost,
		Path:   "/listings",
		Binder: httpez.BindJSON,
		Roles:  []string{string(domain.RoleAdmin)},
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *domain.CreateListing) (*domain.Listing, error) {
			return h.svc.Create(c.Request.Context(), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[domain.UpdateListing, *domain.Listing]{
		Method:      http.MethodPut,
		Path:        "/listings/:id",
		Binder:      httpez.BindJSON,
		Roles:       []string{string(domain.RoleAdmin)},
		NotFoundMsg: dogNotFound,
		Handler: func(c *gin.Context, in *domain.UpdateListing) (*domain.Listing, error) {
			return h.svc.Update(c.Request.Context(), c.Param("id"), *in)
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, resp.Success]{
		Method:      http.MethodDelete,
		Path:        "/listings/:id",
		Binder:      httpez.BindNone,
		Roles:       []string{string(domain.RoleAdmin)},
		NotFoundMsg: dogNotFound,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Success, error) {
			if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
				return resp.Success{}, err
			}
			return resp.OK(), nil
		},
	})
}
