package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duynhne/cms-service/middleware"
)

// Pages serves the placeholder page routes that sit behind SessionGate.
// Rendering is out of scope; each page reports which view it stands for and,
// where relevant, who is signed in.
type Pages struct{}

// RegisterRoutes mounts the page routes on r.
func (Pages) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", page("home"))
	r.GET("/dashboard", page("dashboard"))
	r.GET("/auth/login", page("login"))
	r.GET("/auth/register", page("register"))
}

func page(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"page": name}
		if user := middleware.Identity(c); user != nil {
			body["user"] = user
		}
		c.JSON(http.StatusOK, body)
	}
}
