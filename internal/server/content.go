package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/service"
	"github.com/gin-gonic/gin"
)

// public, cached reads

func (h *handlers) loadPage(c *gin.Context) {
	bundle, err := h.loader.LoadPage(c.Request.Context(), c.Param("page"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

func (h *handlers) loadServices(c *gin.Context) {
	services, err := h.loader.LoadServices(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, services)
}

func (h *handlers) loadTestimonials(c *gin.Context) {
	testimonials, err := h.loader.LoadTestimonials(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, testimonials)
}

func (h *handlers) loadBlog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	posts, err := h.loader.LoadBlogPosts(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *handlers) loadSettings(c *gin.Context) {
	settings, err := h.loader.LoadSiteSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// admin writes

func (h *handlers) setSetting(c *gin.Context) {
	var body struct {
		Value string `json:"value"`
	}
	if !bind(c, &body) {
		return
	}
	setting, err := h.content.SetSiteSetting(c.Request.Context(), c.Param("key"), body.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

// setPageContent upserts a list of section/key/value slots of one page.
func (h *handlers) setPageContent(c *gin.Context) {
	var slots []model.PageContent
	if !bind(c, &slots) {
		return
	}

	saved := make([]*model.PageContent, 0, len(slots))
	for i := range slots {
		slot := slots[i]
		slot.ID = 0
		slot.Page = c.Param("page")
		content, err := h.content.SetPageContent(c.Request.Context(), &slot)
		if err != nil {
			writeError(c, err)
			return
		}
		saved = append(saved, content)
	}
	c.JSON(http.StatusOK, saved)
}

func (h *handlers) listPageContent(c *gin.Context) {
	content, err := h.content.ListPageContent(c.Request.Context(), c.Param("page"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

// crud wires list/save/delete of one CMS collection onto a router group.
func crud[T any](g *gin.RouterGroup, path string,
	list func(c *gin.Context) ([]*T, error),
	save func(c *gin.Context, v *T) (*T, error),
	setID func(v *T, id uint),
	remove func(c *gin.Context, id uint) error,
) {
	g.GET(path, func(c *gin.Context) {
		items, err := list(c)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	})

	g.POST(path, func(c *gin.Context) {
		v := new(T)
		if !bind(c, v) {
			return
		}
		setID(v, 0)
		saved, err := save(c, v)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, saved)
	})

	g.PUT(path+"/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		v := new(T)
		if !bind(c, v) {
			return
		}
		setID(v, id)
		saved, err := save(c, v)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, saved)
	})

	g.DELETE(path+"/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		if err := remove(c, id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		writeError(c, fmt.Errorf("%w: invalid id %q", service.ErrValidation, c.Param("id")))
		return 0, false
	}
	return uint(id), true
}

func (h *handlers) registerCMS(admin *gin.RouterGroup) {
	s := h.content

	crud(admin, "/services",
		func(c *gin.Context) ([]*model.Service, error) { return s.ListServices(c.Request.Context()) },
		func(c *gin.Context, v *model.Service) (*model.Service, error) { return s.SaveService(c.Request.Context(), v) },
		func(v *model.Service, id uint) { v.ID = id },
		func(c *gin.Context, id uint) error { return s.DeleteService(c.Request.Context(), id) },
	)
	crud(admin, "/testimonials",
		func(c *gin.Context) ([]*model.Testimonial, error) { return s.ListTestimonials(c.Request.Context()) },
		func(c *gin.Context, v *model.Testimonial) (*model.Testimonial, error) {
			return s.SaveTestimonial(c.Request.Context(), v)
		},
		func(v *model.Testimonial, id uint) { v.ID = id },
		func(c *gin.Context, id uint) error { return s.DeleteTestimonial(c.Request.Context(), id) },
	)
	crud(admin, "/blog",
		func(c *gin.Context) ([]*model.BlogPost, error) { return s.ListBlogPosts(c.Request.Context()) },
		func(c *gin.Context, v *model.BlogPost) (*model.BlogPost, error) { return s.SaveBlogPost(c.Request.Context(), v) },
		func(v *model.BlogPost, id uint) { v.ID = id },
		func(c *gin.Context, id uint) error { return s.DeleteBlogPost(c.Request.Context(), id) },
	)
	crud(admin, "/hero",
		func(c *gin.Context) ([]*model.HeroSection, error) { return s.ListHeroSections(c.Request.Context()) },
		func(c *gin.Context, v *model.HeroSection) (*model.HeroSection, error) {
			return s.SaveHeroSection(c.Request.Context(), v)
		},
		func(v *model.HeroSection, id uint) { v.ID = id },
		func(c *gin.Context, id uint) error { return s.DeleteHeroSection(c.Request.Context(), id) },
	)
}

// media

func (h *handlers) listMedia(c *gin.Context) {
	media, err := h.media.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, media)
}

func (h *handlers) uploadMedia(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, fmt.Errorf("%w: multipart field \"file\" is required", service.ErrInvalidFile))
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer file.Close()

	media, err := h.media.Upload(c.Request.Context(), header.Filename, c.PostForm("altText"), file)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, media)
}

func (h *handlers) deleteMedia(c *gin.Context) {
	if err := h.media.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
