package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path"
	"strconv"
	"time"

	"stays/src/boot"
	"stays/src/config"
	"stays/src/db"
	"stays/src/gateway"
	"stays/src/lib"
	"stays/src/middlewares"
	"stays/src/models"
	"stays/src/payments"
	"stays/src/store"
	"stays/src/types"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
	_ "github.com/joho/godotenv/autoload"
	"gorm.io/gorm"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

const (
	apiPrefix string = "/api/v1"
)

// bookabledate accepts a calendar date that is not in the past.
var bookableDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	day, err := time.Parse(config.DATE_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	today := time.Now().Truncate(24 * time.Hour)
	return !day.Before(today)
}

// gtdate requires the field to fall strictly after the named sibling field.
var gtdate validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	day, err := time.Parse(config.DATE_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.Param())
	otherValue, ok := field.Interface().(string)
	if !ok {
		return false
	}
	other, err := time.Parse(config.DATE_PARSE_FORMAT, otherValue)
	if err != nil {
		return false
	}
	return day.After(other)
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		atoi, err := strconv.ParseBool(mm)
		if err == nil && atoi {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func generateJWT(email string, id uint, role string) (string, error) {
	claims := types.Claims{
		Username: email,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(id)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

func guestAuthRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	auth := apiv1.Group("/auth")
	auth.
		POST("/register", func(ctx *gin.Context) {
			var body types.RegisterUserRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			user := models.User{Email: body.Email, Name: body.Name}
			db := db.GetDb()
			if err := db.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&user).Error
			}); err != nil {
				log.Printf("Error creating user: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			respondCreated(ctx, user)
		}).
		POST("/login", func(ctx *gin.Context) {
			var body types.LoginRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var user models.User
			if err := db.
				Model(&models.User{}).
				Where("email = ?", body.Email).
				First(&user).
				Error; err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			token, err := generateJWT(user.Email, user.ID, user.Role)
			if err != nil {
				log.Printf("Error generating token: %s\n", err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			respond(ctx, gin.H{"token": token})
		})
	return apiv1
}

var (
	appStore     *store.GormStore
	registry     *gateway.Registry
	orchestrator *payments.Orchestrator
	ingestor     *payments.Ingestor
)

func getStore() *store.GormStore {
	if appStore == nil {
		appStore = store.New(db.GetDb())
	}
	return appStore
}

func gatewayRegistry() *gateway.Registry {
	if registry != nil {
		return registry
	}
	reg := gateway.NewRegistry()
	reg.Register(gateway.NewStripeAdapter(lib.GetStripeClient(), os.Getenv("STRIPE_WEBHOOK_SECRET")))
	if pc := lib.GetPayPalClient(); pc != nil {
		reg.Register(gateway.NewPayPalAdapter(pc, os.Getenv("PAYPAL_WEBHOOK_SECRET")))
	}
	registry = reg
	return reg
}

func getOrchestrator() *payments.Orchestrator {
	if orchestrator != nil {
		return orchestrator
	}
	orchestrator = payments.New(
		getStore(),
		gatewayRegistry(),
		payments.WithPublisher(func(topic string, payload map[string]any) error {
			return lib.KafkaProduceMessage("stays-api", topic, payload)
		}),
	)
	return orchestrator
}

func getIngestor() *payments.Ingestor {
	if ingestor != nil {
		return ingestor
	}
	ingestor = payments.NewIngestor(gatewayRegistry(), getOrchestrator(), lib.GetRedisClient())
	return ingestor
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}

	if err := boot.InitDb(); err != nil {
		log.Fatalf("Could not initialize database: %s\n", err.Error())
	}
	if err := boot.InitScheduler(); err != nil {
		log.Printf("Could not start scheduler: %s\n", err.Error())
	}
	defer boot.StopScheduler()

	router := setupRouter()

	if apiEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization", "X-Request-Id")
		cc.AllowOrigins = []string{os.Getenv("APP_HOST")}
		router.Use(cors.New(cc))
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookabledate", bookableDateValidatorFunc)
		v.RegisterValidation("gtdate", gtdate)
	}

	router = maintenanceModeMiddleware(router)

	guestAuthRoutes(router)

	public := apiv1Group(router)
	propertyPublicHandlers(public)
	webhookHandlers(public)

	authed := apiv1Group(router)
	authed.Use(middlewares.AuthMiddleware)
	propertyHandlers(authed)
	bookingHandlers(authed)
	paymentHandlers(authed)

	if err := router.Run(":9090"); err != nil {
		log.Fatalf("Could not start the server: %s\n", err.Error())
	}
}
