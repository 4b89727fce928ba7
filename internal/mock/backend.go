// Package mock serves an in-process stand-in for the remote school-transport
// API, used by the mock-data mode and by tests.
package mock

import (
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"school_tracker/internal/models"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "school123"

type credential struct {
	hash   []byte
	userID models.ID
}

// Backend holds the seeded data set. All handlers share one mutex.
type Backend struct {
	mu sync.Mutex

	buses     *collection[models.Bus]
	students  *collection[models.Student]
	manifests *collection[models.Manifest]
	users     *collection[models.User]
	schools   *collection[models.School]

	credentials map[string]credential
	tokens      map[string]models.ID
	devices     []*device
	rng         *rand.Rand
	now         func() time.Time

	panics []models.PanicAlert
	sms    []models.SMSNotification

	// ServiceToken is pre-issued for the fleet poller.
	ServiceToken string
}

// New seeds a school with three buses, their crews, two parents and their
// children. hashCost is the bcrypt cost for the seeded passwords.
func New(hashCost int) (*Backend, error) {
	b := &Backend{
		buses:       newCollection(func(v models.Bus) models.ID { return v.ID }, func(v *models.Bus, id models.ID) { v.ID = id }),
		students:    newCollection(func(v models.Student) models.ID { return v.ID }, func(v *models.Student, id models.ID) { v.ID = id }),
		manifests:   newCollection(func(v models.Manifest) models.ID { return v.ID }, func(v *models.Manifest, id models.ID) { v.ID = id }),
		users:       newCollection(func(v models.User) models.ID { return v.ID }, func(v *models.User, id models.ID) { v.ID = id }),
		schools:     newCollection(func(v models.School) models.ID { return v.ID }, func(v *models.School, id models.ID) { v.ID = id }),
		credentials: map[string]credential{},
		tokens:      map[string]models.ID{},
		rng:         rand.New(rand.NewSource(42)),
		now:         time.Now,
	}
	b.users.filter = func(u models.User, q map[string][]string) bool {
		role := first(q["role"])
		return role == "" || strings.EqualFold(u.Role, role)
	}

	if err := b.seed(hashCost); err != nil {
		return nil, err
	}
	b.ServiceToken = b.issueToken("1")
	return b, nil
}

func (b *Backend) seed(cost int) error {
	b.schools.put(models.School{ID: "1", Name: "Riverside Academy", Address: "Riverside Drive, Nairobi", Phone: "+254700000001"})

	users := []struct {
		user  models.User
		email string
	}{
		{models.User{ID: "1", Name: "Amina Odhiambo", Role: "ADMIN", Phone: "+254700000010"}, "admin@riverside.ac.ke"},
		{models.User{ID: "2", Name: "Peter Kamau", Role: "DRIVER", Phone: "+254700000011"}, "driver@riverside.ac.ke"},
		{models.User{ID: "3", Name: "Joseph Mwangi", Role: "DRIVER", Phone: "+254700000012"}, "driver2@riverside.ac.ke"},
		{models.User{ID: "4", Name: "Grace Wanjiru", Role: "ASSISTANT", Phone: "+254700000013"}, "assistant@riverside.ac.ke"},
		{models.User{ID: "5", Name: "Mary Achieng", Role: "PARENT", Phone: "+254700000014"}, "parent@riverside.ac.ke"},
		{models.User{ID: "6", Name: "David Otieno", Role: "PARENT", Phone: "+254700000015"}, "parent2@riverside.ac.ke"},
	}
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
		if err != nil {
			return err
		}
		u.user.Email = u.email
		u.user.SchoolID = "1"
		b.users.put(u.user)
		b.credentials[u.email] = credential{hash: hash, userID: u.user.ID}
	}

	b.buses.put(models.Bus{ID: "1", Name: "Bus 1", PlateNumber: "KBZ 123A", Capacity: 33, Route: "Westlands - Riverside", DriverID: "2", AssistantID: "4", SchoolID: "1", IsActive: true})
	b.buses.put(models.Bus{ID: "2", Name: "Bus 2", PlateNumber: "KCA 456B", Capacity: 51, Route: "Kilimani - Riverside", DriverID: "3", SchoolID: "1", IsActive: true})
	b.buses.put(models.Bus{ID: "3", Name: "Bus 3", PlateNumber: "KDD 789C", Capacity: 14, Route: "Karen - Riverside", SchoolID: "1", IsActive: true})
	// No device reports for this one.
	b.buses.put(models.Bus{ID: "4", Name: "Spare", PlateNumber: "KAA 001Z", Capacity: 14, SchoolID: "1"})

	b.students.put(models.Student{ID: "1", Name: "Brian Achieng", Grade: "4", SchoolID: "1", BusID: "1", ParentID: "5", PickupLat: models.Num(-1.2646), PickupLng: models.Num(36.8028)})
	b.students.put(models.Student{ID: "2", Name: "Faith Achieng", Grade: "2", SchoolID: "1", BusID: "1", ParentID: "5", PickupLat: models.Num(-1.2646), PickupLng: models.Num(36.8028)})
	b.students.put(models.Student{ID: "3", Name: "Kevin Otieno", Grade: "6", SchoolID: "1", BusID: "2", ParentID: "6", PickupLat: models.Num(-1.2921), PickupLng: models.Num(36.7837)})

	now := b.now().UTC()
	b.manifests.put(models.Manifest{ID: "1", StudentID: "1", BusID: "1", AssistantID: "4", Session: models.SessionMorning, Status: models.StatusCheckedIn, Timestamp: now.Add(-30 * time.Minute), Latitude: models.Num(-1.2646), Longitude: models.Num(36.8028)})

	// Plate formatting varies on purpose. dev-002 reports lat/lng swapped and
	// dev-003 has no fix.
	b.devices = []*device{
		{id: "dev-001", plate: "kbz123a", lat: -1.2646, lng: 36.8028, direction: 90, speed: 32, moving: true},
		{id: "dev-002", plate: " KCA 456B ", lat: 36.7837, lng: -1.2921, direction: 180, speed: 0},
		{id: "dev-003", plate: "KDD789C", blank: true},
	}
	return nil
}

func (b *Backend) issueToken(userID models.ID) string {
	token := uuid.NewString()
	b.tokens[token] = userID
	return token
}

// Revoke invalidates a bearer token, as an expiring session would.
func (b *Backend) Revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
}

// Panics returns the panic alerts received so far.
func (b *Backend) Panics() []models.PanicAlert {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.PanicAlert(nil), b.panics...)
}

func (b *Backend) SMS() []models.SMSNotification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.SMSNotification(nil), b.sms...)
}

// Handler builds the gin engine serving the REST surface.
func (b *Backend) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/auth/login", b.login)
	r.POST("/auth/forgot-password", b.forgotPassword)

	api := r.Group("/", b.requireToken)
	registerCollection(api, "/buses", &b.mu, b.buses)
	registerCollection(api, "/students", &b.mu, b.students)
	registerCollection(api, "/manifests", &b.mu, b.manifests)
	registerCollection(api, "/users", &b.mu, b.users)
	registerCollection(api, "/schools", &b.mu, b.schools)
	api.GET("/parents", b.listParents)
	api.POST("/parents", b.createParent)
	api.GET("/devices/locations", b.deviceLocations)
	api.POST("/panic-alerts", b.panicAlert)
	api.POST("/notifications/sms", b.sendSMS)
	return r
}

func (b *Backend) requireToken(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	b.mu.Lock()
	_, ok := b.tokens[token]
	b.mu.Unlock()
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
		return
	}
	c.Next()
}

func (b *Backend) login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	cred, ok := b.credentials[strings.ToLower(strings.TrimSpace(in.Email))]
	if !ok || bcrypt.CompareHashAndPassword(cred.hash, []byte(in.Password)) != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid credentials"})
		return
	}
	user, _ := b.users.get(cred.userID)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"token": b.issueToken(cred.userID), "user": user}})
}

func (b *Backend) forgotPassword(c *gin.Context) {
	var in struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the address is registered a reset link has been sent."})
}

func (b *Backend) listParents(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"data": b.users.list(map[string][]string{"role": {"PARENT"}})})
}

func (b *Backend) createParent(c *gin.Context) {
	var u models.User
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	u.Role = "PARENT"
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusCreated, gin.H{"data": b.users.create(u)})
}

func (b *Backend) panicAlert(c *gin.Context) {
	var alert models.PanicAlert
	if err := c.ShouldBindJSON(&alert); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	b.mu.Lock()
	b.panics = append(b.panics, alert)
	b.mu.Unlock()
	c.JSON(http.StatusCreated, gin.H{"message": "Alert received"})
}

func (b *Backend) sendSMS(c *gin.Context) {
	var sms models.SMSNotification
	if err := c.ShouldBindJSON(&sms); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	b.mu.Lock()
	b.sms = append(b.sms, sms)
	b.mu.Unlock()
	c.JSON(http.StatusAccepted, gin.H{"message": "Queued"})
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
