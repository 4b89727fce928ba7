package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"school_tracker/internal/apiclient"
	"school_tracker/internal/crud"
	"school_tracker/internal/models"
)

// Entity proxies CRUD for one remote collection. Lists are searched, sorted
// and paginated here since the remote API does not.
type Entity[T crud.Record] struct {
	Name     string
	Resource func(*apiclient.Client) apiclient.Resource[T]
	// Prepare adjusts a record before create and update.
	Prepare func(*T)
}

func (e Entity[T]) List(c *gin.Context) {
	items, err := e.Resource(apiFrom(c)).List(c.Request.Context(), nil)
	if err != nil {
		respondAPIError(c, err, e.Name)
		return
	}
	c.JSON(http.StatusOK, crud.Apply(items, crud.ParseQuery(c.Request.URL.Query())))
}

func (e Entity[T]) Get(c *gin.Context) {
	item, err := e.Resource(apiFrom(c)).Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondAPIError(c, err, e.Name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (e Entity[T]) Create(c *gin.Context) {
	var input T
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if e.Prepare != nil {
		e.Prepare(&input)
	}
	item, err := e.Resource(apiFrom(c)).Create(c.Request.Context(), input)
	if err != nil {
		respondAPIError(c, err, e.Name)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item, "message": e.Name + " created"})
}

func (e Entity[T]) Update(c *gin.Context) {
	var input T
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if e.Prepare != nil {
		e.Prepare(&input)
	}
	item, err := e.Resource(apiFrom(c)).Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondAPIError(c, err, e.Name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item, "message": e.Name + " updated"})
}

func (e Entity[T]) Delete(c *gin.Context) {
	if err := e.Resource(apiFrom(c)).Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondAPIError(c, err, e.Name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": e.Name + " deleted"})
}

func BusEntity() Entity[models.Bus] {
	return Entity[models.Bus]{Name: "bus", Resource: (*apiclient.Client).Buses}
}

func StudentEntity() Entity[models.Student] {
	return Entity[models.Student]{Name: "student", Resource: (*apiclient.Client).Students}
}

func ManifestEntity() Entity[models.Manifest] {
	return Entity[models.Manifest]{Name: "manifest", Resource: (*apiclient.Client).Manifests}
}

func SchoolEntity() Entity[models.School] {
	return Entity[models.School]{Name: "school", Resource: (*apiclient.Client).Schools}
}

func ParentEntity() Entity[models.User] {
	return Entity[models.User]{
		Name:     "parent",
		Resource: (*apiclient.Client).Parents,
		Prepare:  func(u *models.User) { u.Role = "PARENT" },
	}
}

// CrewEntity is the users collection scoped to one crew role.
func CrewEntity(name, role string) Entity[models.User] {
	return Entity[models.User]{
		Name:     name,
		Resource: func(api *apiclient.Client) apiclient.Resource[models.User] { return api.Users(role) },
		Prepare:  func(u *models.User) { u.Role = role },
	}
}
