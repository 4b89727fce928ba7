package mock

import (
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"school_tracker/internal/models"
)

type collection[T any] struct {
	items  map[models.ID]T
	nextID int
	idOf   func(T) models.ID
	setID  func(*T, models.ID)
	filter func(T, map[string][]string) bool
}

func newCollection[T any](idOf func(T) models.ID, setID func(*T, models.ID)) *collection[T] {
	return &collection[T]{items: map[models.ID]T{}, idOf: idOf, setID: setID}
}

func (c *collection[T]) put(v T) {
	id := c.idOf(v)
	if n, err := strconv.Atoi(id.String()); err == nil && n > c.nextID {
		c.nextID = n
	}
	c.items[id] = v
}

func (c *collection[T]) create(v T) T {
	c.nextID++
	c.setID(&v, models.ID(strconv.Itoa(c.nextID)))
	c.put(v)
	return v
}

func (c *collection[T]) get(id models.ID) (T, bool) {
	v, ok := c.items[id]
	return v, ok
}

// list returns items ordered by numeric id.
func (c *collection[T]) list(q map[string][]string) []T {
	ids := make([]models.ID, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i].String())
		b, _ := strconv.Atoi(ids[j].String())
		return a < b
	})
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v := c.items[id]
		if c.filter != nil && !c.filter(v, q) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func registerCollection[T any](g *gin.RouterGroup, path string, mu *sync.Mutex, c *collection[T]) {
	g.GET(path, func(ctx *gin.Context) {
		mu.Lock()
		defer mu.Unlock()
		ctx.JSON(http.StatusOK, gin.H{"data": c.list(ctx.Request.URL.Query())})
	})

	g.GET(path+"/:id", func(ctx *gin.Context) {
		mu.Lock()
		defer mu.Unlock()
		v, ok := c.get(models.ID(ctx.Param("id")))
		if !ok {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"data": v})
	})

	g.POST(path, func(ctx *gin.Context) {
		var v T
		if err := ctx.ShouldBindJSON(&v); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		mu.Lock()
		defer mu.Unlock()
		ctx.JSON(http.StatusCreated, gin.H{"data": c.create(v)})
	})

	g.PUT(path+"/:id", func(ctx *gin.Context) {
		id := models.ID(ctx.Param("id"))
		var v T
		if err := ctx.ShouldBindJSON(&v); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if _, ok := c.get(id); !ok {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
			return
		}
		c.setID(&v, id)
		c.put(v)
		ctx.JSON(http.StatusOK, gin.H{"data": v})
	})

	g.DELETE(path+"/:id", func(ctx *gin.Context) {
		id := models.ID(ctx.Param("id"))
		mu.Lock()
		defer mu.Unlock()
		if _, ok := c.get(id); !ok {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
			return
		}
		delete(c.items, id)
		ctx.Status(http.StatusNoContent)
	})
}
