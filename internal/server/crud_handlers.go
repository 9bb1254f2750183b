package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rapmendoza/ai-side-panel/internal/common"
	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/rapmendoza/ai-side-panel/internal/service"
)

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", common.ErrInvalidInput)
	}
	return id, nil
}

func (s *Server) handleListPayees(c echo.Context) error {
	filter := service.PayeeFilter{
		Name:     c.QueryParam("name"),
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
	}
	if limit := c.QueryParam("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return s.writeError(c, fmt.Errorf("%w: limit must be a non-negative integer", common.ErrInvalidInput))
		}
		filter.Limit = n
	}

	payees, err := s.storage.GetPayees(c.Request().Context(), owner(c), filter)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, payees)
}

func (s *Server) handleCreatePayee(c echo.Context) error {
	var payee model.Payee
	if err := c.Bind(&payee); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
	}
	payee.ID = 0
	payee.OwnerID = owner(c)

	created, err := s.storage.CreatePayee(c.Request().Context(), &payee)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleGetPayee(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.writeError(c, err)
	}

	payee, err := s.storage.GetPayee(c.Request().Context(), owner(c), id)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, payee)
}

func (s *Server) handleUpdatePayee(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.writeError(c, err)
	}

	var payee model.Payee
	if err := c.Bind(&payee); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
	}
	payee.ID = id
	payee.OwnerID = owner(c)

	updated, err := s.storage.UpdatePayee(c.Request().Context(), &payee)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeletePayee(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.writeError(c, err)
	}

	if err := s.storage.DeletePayee(c.Request().Context(), owner(c), id); err != nil {
		return s.writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListCategories(c echo.Context) error {
	filter := service.CategoryFilter{
		Name:   c.QueryParam("name"),
		Type:   model.CategoryType(c.QueryParam("type")),
		Search: c.QueryParam("search"),
	}
	if limit := c.QueryParam("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return s.writeError(c, fmt.Errorf("%w: limit must be a non-negative integer", common.ErrInvalidInput))
		}
		filter.Limit = n
	}

	categories, err := s.storage.GetCategories(c.Request().Context(), owner(c), filter)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(c echo.Context) error {
	var category model.Category
	if err := c.Bind(&category); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
	}
	category.ID = 0
	category.OwnerID = owner(c)

	created, err := s.storage.CreateCategory(c.Request().Context(), &category)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleGetCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.writeError(c, err)
	}

	category, err := s.storage.GetCategory(c.Request().Context(), owner(c), id)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, category)
}

func (s *Server) handleUpdateCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.writeError(c, err)
	}

	var category model.Category
	if err := c.Bind(&category); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
	}
	category.ID = id
	category.OwnerID = owner(c)

	updated, err := s.storage.UpdateCategory(c.Request().Context(), &category)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return s.writeError(c, err)
	}

	if err := s.storage.DeleteCategory(c.Request().Context(), owner(c), id); err != nil {
		return s.writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
