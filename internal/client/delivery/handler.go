package delivery

import (
	"net/http"

	"cyra-kanban/internal/client/usecase"
	"cyra-kanban/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	clientUsecase usecase.ClientUsecase
}

func NewClientHandler(clientUsecase usecase.ClientUsecase) *ClientHandler {
	return &ClientHandler{clientUsecase: clientUsecase}
}

func (h *ClientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	clients := rg.Group("/clients")
	{
		clients.GET("", h.ListClients)
		clients.POST("", h.CreateClient)
		clients.GET("/:id", h.GetClient)
		clients.PATCH("/:id", h.UpdateClient)
		clients.DELETE("/:id", h.DeleteClient)
	}

	products := rg.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.POST("", h.CreateProduct)
		products.PATCH("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
	}
}

// GET /api/clients
func (h *ClientHandler) ListClients(c *gin.Context) {
	clients, err := h.clientUsecase.ListClients(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

// GET /api/clients/:id
func (h *ClientHandler) GetClient(c *gin.Context) {
	client, err := h.clientUsecase.GetClient(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// POST /api/clients
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req usecase.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := h.clientUsecase.CreateClient(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

// PATCH /api/clients/:id
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	var req usecase.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := h.clientUsecase.UpdateClient(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// DELETE /api/clients/:id
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	if err := h.clientUsecase.DeleteClient(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GET /api/products
func (h *ClientHandler) ListProducts(c *gin.Context) {
	products, err := h.clientUsecase.ListProducts(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// POST /api/products
func (h *ClientHandler) CreateProduct(c *gin.Context) {
	var req usecase.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product, err := h.clientUsecase.CreateProduct(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// PATCH /api/products/:id
func (h *ClientHandler) UpdateProduct(c *gin.Context) {
	var req usecase.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product, err := h.clientUsecase.UpdateProduct(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DELETE /api/products/:id
func (h *ClientHandler) DeleteProduct(c *gin.Context) {
	if err := h.clientUsecase.DeleteProduct(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		errutil.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
