package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"storefront/internal/catalog"
)

func registerRoutes(e *echo.Echo, svc *catalog.Service, v *Validator) {
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	e.GET("/health", func(c echo.Context) error {
		sqlDB, err := svc.DB().DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request().Context())
		}
		if err != nil {
			logrus.WithError(err).Warn("Health check failed")
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	v1 := e.Group("/api/v1")

	products := v1.Group("/products")
	products.GET("", listProducts(svc))
	products.POST("/create", createProduct(svc), validBody[ProductRequest](v, true))
	products.GET("/views", listProductViews(svc))
	products.GET("/:slug", getProduct(svc))
	products.PUT("/:slug", updateProduct(svc), validBody[ProductRequest](v, false))
	products.DELETE("/:slug", deleteProduct(svc))
	products.POST("/:slug/views", recordView(svc))
	products.PUT("/:slug/views", recordView(svc))

	categories := v1.Group("/categories")
	categories.GET("", func(c echo.Context) error {
		list, err := svc.ListCategories(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "categories": list})
	})
	categories.POST("", func(c echo.Context) error {
		req := body[NameRequest](c)
		category, err := svc.CreateCategory(c.Request().Context(), req.Name)
		if errors.Is(err, catalog.ErrNameTaken) {
			return newError(http.StatusBadRequest, "Category already exists")
		}
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "New category added", "category": category})
	}, validBody[NameRequest](v, false))

	tags := v1.Group("/tags")
	tags.GET("", func(c echo.Context) error {
		list, err := svc.ListTags(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "tags": list})
	})
	tags.POST("", func(c echo.Context) error {
		req := body[NameRequest](c)
		tag, err := svc.CreateTag(c.Request().Context(), req.Name)
		if errors.Is(err, catalog.ErrNameTaken) {
			return newError(http.StatusBadRequest, "Tag already exists")
		}
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "New tag added", "tag": tag})
	}, validBody[NameRequest](v, false))
}

func listProducts(svc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := catalog.ParseListParams(c.QueryParams())
		products, total, err := svc.ListProducts(c.Request().Context(), params)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "total": total, "products": products})
	}
}

func createProduct(svc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		in, err := body[ProductRequest](c).Input()
		if err != nil {
			logrus.WithError(err).Warn("Failed to convert product request")
			return errInvalidBody
		}

		product, err := svc.CreateProduct(c.Request().Context(), in)
		if err != nil {
			return productError(err)
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "New product added", "product": product})
	}
}

// getProduct answers a missing product with 200 and success false.
func getProduct(svc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		product, err := svc.GetProduct(c.Request().Context(), c.Param("slug"))
		if errors.Is(err, catalog.ErrProductNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "Product does not exist"})
		}
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "product": product})
	}
}

func updateProduct(svc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		in, err := body[ProductRequest](c).Input()
		if err != nil {
			logrus.WithError(err).Warn("Failed to convert product request")
			return errInvalidBody
		}

		product, err := svc.UpdateProduct(c.Request().Context(), c.Param("slug"), in)
		if err != nil {
			return productError(err)
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Product updated", "product": product})
	}
}

func deleteProduct(svc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.DeleteProduct(c.Request().Context(), c.Param("slug")); err != nil {
			return productError(err)
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Product deleted"})
	}
}

// recordView counts the caller once per product per month. The caller is
// identified by its User-Agent header only.
func recordView(svc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		outcome, err := svc.RecordView(c.Request().Context(), c.Param("slug"), c.Request().UserAgent())
		if errors.Is(err, catalog.ErrProductNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "Product does not exist"})
		}
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": outcome.Message()})
	}
}

func listProductViews(svc *catalog.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		views, err := svc.ListProductViews(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "productViews": views})
	}
}

// productError maps catalog failures to client errors. Unknown errors pass
// through to the 500 path of ErrorHandler.
func productError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return errProductNotFound
	case errors.Is(err, catalog.ErrProductExists):
		return errProductExists
	case errors.Is(err, catalog.ErrSKUTaken):
		return errSKUTaken
	case errors.Is(err, catalog.ErrImageTaken):
		return errImageTaken
	case errors.Is(err, catalog.ErrInvalidReference):
		return errInvalidReference
	}
	return err
}
