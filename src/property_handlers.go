package main

import (
	"log"
	"net/http"

	"stays/src/db"
	"stays/src/models"
	"stays/src/types"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func propertyPublicHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/properties", func(ctx *gin.Context) {
			db := db.GetDb()
			var properties []models.Property
			if err := db.
				Model(&models.Property{}).
				Where("status = ?", types.PROPERTY_LISTED).
				Limit(100).
				Find(&properties).
				Error; err != nil {
				log.Printf("Error listing properties: %s\n", err.Error())
				respondError(ctx, err)
				return
			}
			respond(ctx, properties)
		}).
		GET("/properties/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			db := db.GetDb()
			var property models.Property
			if err := db.
				Model(&models.Property{}).
				Preload("Owner").
				First(&property, params.ID).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			respond(ctx, property)
		})
	return g
}

func propertyHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/properties", func(ctx *gin.Context) {
			var body types.CreatePropertyRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			rate, err := types.ParseAmount(body.NightlyRate, body.Currency)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerID := ctx.GetUint("id")
			property := models.Property{
				Title:       body.Title,
				Slug:        slug.Make(body.Title),
				Location:    body.Location,
				OwnerID:     ownerID,
				NightlyRate: rate,
				Currency:    body.Currency,
				Status:      types.PROPERTY_LISTED,
			}
			db := db.GetDb()
			if err := db.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&property).Error
			}); err != nil {
				log.Printf("Error creating property: %s\n", err.Error())
				respondError(ctx, err)
				return
			}
			respondCreated(ctx, property)
		})
	return g
}
