package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/zarachi/zarachi-backend/internal/config"
	"github.com/zarachi/zarachi-backend/internal/handler"
	"github.com/zarachi/zarachi-backend/internal/mail"
	appmw "github.com/zarachi/zarachi-backend/internal/middleware"
	"github.com/zarachi/zarachi-backend/internal/payment"
	"github.com/zarachi/zarachi-backend/internal/repository"
	"github.com/zarachi/zarachi-backend/internal/service"
	"github.com/zarachi/zarachi-backend/internal/shipping"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps carries everything the route tree needs that is not derived from the
// DB handle. Optional fields degrade features instead of failing startup:
// nil Uploader disables image upload, nil Redis disables quote caching.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Sender   mail.Sender
	Uploader service.ImageUploader
	Logger   *zap.Logger
}

type Server struct {
	e      *echo.Echo
	logger *zap.Logger
}

func New(deps Deps) (*Server, error) {
	cfg := deps.Config

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin,
	}))

	productRepo := repository.NewProductRepository(deps.DB)
	orderRepo := repository.NewOrderRepository(deps.DB, cfg.OrderIDPrefix)
	orphanRepo := repository.NewOrphanPaymentRepository(deps.DB)
	customerRepo := repository.NewCustomerRepository(deps.DB)
	receiptRepo := repository.NewReceiptRepository(deps.DB)
	labelRepo := repository.NewShippingLabelRepository(deps.DB)

	verifier := payment.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey)
	rateProvider := shipping.NewClient(cfg.ShipbubbleBaseURL, cfg.ShipbubbleAPIKey)

	receiptSvc := service.NewReceiptService(receiptRepo, orderRepo, customerRepo, deps.Sender, cfg.MailFromName, deps.Logger)
	checkoutSvc := service.NewCheckoutService(productRepo, orderRepo, orphanRepo, customerRepo,
		verifier, receiptSvc, cfg.HomeCurrency, deps.Logger)
	catalogSvc := service.NewCatalogService(productRepo, deps.Uploader)
	orderSvc := service.NewOrderService(orderRepo)
	customerSvc := service.NewCustomerService(customerRepo)
	reconSvc := service.NewReconciliationService(orphanRepo, verifier)
	shippingSvc := service.NewShippingService(rateProvider, labelRepo, deps.Redis, deps.Logger)

	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc)
	productHandler := handler.NewProductHandler(catalogSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	customerHandler := handler.NewCustomerHandler(customerSvc)
	reconHandler := handler.NewReconciliationHandler(reconSvc)
	receiptHandler := handler.NewReceiptHandler(receiptSvc)
	shippingHandler := handler.NewShippingHandler(shippingSvc)

	authMw, err := appmw.NewAuthMiddleware(context.Background(), cfg.FirebaseProjectID)
	if err != nil {
		return nil, err
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	})

	api := e.Group("/api")

	// Public storefront.
	api.GET("/products", productHandler.List)
	api.GET("/products/:slug", productHandler.GetBySlug)
	api.POST("/checkout", checkoutHandler.Place)
	api.POST("/shipping/rates", shippingHandler.Rates)
	api.POST("/shipping/address", shippingHandler.ValidateAddress)
	api.GET("/shipping/quotes/:token", shippingHandler.CachedQuote)
	api.GET("/orders/:orderNo/track", orderHandler.Track)

	// Signed-in customers.
	api.GET("/me", customerHandler.Me, authMw.RequireAuth)
	api.PUT("/me", customerHandler.SaveMe, authMw.RequireAuth)
	api.GET("/me/orders", orderHandler.ListMine, authMw.RequireAuth)
	api.POST("/me/checkout", checkoutHandler.Place, authMw.RequireAuth)

	// Store operations.
	admin := api.Group("/admin", authMw.RequireStaff)
	admin.POST("/products", productHandler.Create)
	admin.PUT("/products/:id", productHandler.Update)
	admin.POST("/products/:id/variants", productHandler.AddVariant)
	admin.POST("/products/:id/image", productHandler.UploadImage)
	admin.POST("/variants/:variantId/restock", productHandler.Restock)
	admin.GET("/orders", orderHandler.List)
	admin.GET("/orders/:id", orderHandler.Get)
	admin.PATCH("/orders/:id/status", orderHandler.UpdateStatus)
	admin.POST("/orders/:id/refund", orderHandler.Refund)
	admin.POST("/orders/:id/label", shippingHandler.CreateLabel)
	admin.GET("/orders/:id/receipt", receiptHandler.Status)
	admin.GET("/orphan-payments", reconHandler.List)
	admin.GET("/orphan-payments/:id/verify", reconHandler.Verify)
	admin.POST("/orphan-payments/:id/resolve", reconHandler.Resolve)
	admin.POST("/receipts/dispatch-due", receiptHandler.DispatchDue)

	return &Server{e: e, logger: deps.Logger}, nil
}

func allowOrigin(origin string) (bool, error) {
	low := strings.ToLower(origin)
	if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
		strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
		return true, nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false, nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, nil
	}
	host := u.Hostname()
	if host == "zarachi.shop" || strings.HasSuffix(host, ".zarachi.shop") || strings.HasSuffix(host, "vercel.app") {
		return true, nil
	}
	return false, nil
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
