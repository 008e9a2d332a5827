package api

import (
	"errors"
	"image"
	"io"
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/speedtrail/speedtrail/pkg/jobs"
	"github.com/speedtrail/speedtrail/pkg/utils"
	"github.com/spf13/viper"
)

//SetRouter builds the HTTP API. Tracking jobs are started and looked up through registry.
func SetRouter(registry *jobs.Registry) *gin.Engine {
	r := gin.Default()

	//serve html pages to client
	if staticPath := viper.GetString("frontend.static-files-path"); staticPath != "" {
		r.Static("/client", staticPath)
		r.StaticFile("/", staticPath+"home_page/dist/index.html")
	}

	apiRoutes := r.Group("/api")

	apiRoutes.GET("/ReadyVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(viper.GetString("directory.ready")); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/UserUploadsVideosNames", func(ctx *gin.Context) {
		if names, err := utils.ListDir(viper.GetString("directory.source")); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/Play", func(ctx *gin.Context) {
		videoName := ctx.Query("name")
		if videoName == "" {
			ctx.Status(http.StatusNotAcceptable) //missing url parameter
			return
		}

		analyzed := ctx.Query("analyzed")
		if analyzed != "true" && analyzed != "false" {
			ctx.Status(http.StatusNotAcceptable) //missing url parameter
			return
		}

		format := viper.GetString("video.prod_format")
		var videoPath string
		if analyzed == "true" {
			videoPath = path.Join(viper.GetString("directory.ready"), videoName+"."+format)
		} else {
			videoPath = path.Join(viper.GetString("directory.source"), videoName+"."+format)
		}

		if _, err := os.Stat(videoPath); err != nil {
			if os.IsNotExist(err) {
				ctx.Status(http.StatusNotFound)
				return
			} else {
				ctx.Status(http.StatusInternalServerError)
				return
			}
		}

		ctx.Header("Content-Type", utils.VideoContentType(format))
		http.ServeFile(ctx.Writer, ctx.Request, videoPath)
	})

	apiRoutes.POST("/Upload", func(ctx *gin.Context) {
		file, fHeader, err := ctx.Request.FormFile("video")
		if err != nil {
			ctx.Status(http.StatusBadRequest)
			return
		}
		defer file.Close()

		fileName := path.Base(fHeader.Filename)

		if existNames, err := utils.ListDir(viper.GetString("directory.source")); err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		} else {
			if utils.InSlice(fileName, existNames) {
				ctx.Status(http.StatusNotAcceptable)
				return
			}
		}

		//any region field asks to start tracking right away, check them before keeping the file
		var region image.Rectangle
		startJob := false
		for _, field := range []string{"x", "y", "w", "h"} {
			if _, ok := ctx.GetPostForm(field); ok {
				startJob = true
			}
		}
		if startJob {
			if region, err = utils.ParseRegion(ctx.PostForm("x"), ctx.PostForm("y"), ctx.PostForm("w"), ctx.PostForm("h")); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		log.Printf("api/Upload: Recived new file: name - '%s', size - %v Bytes", fileName, fHeader.Size)

		fileBytes, err := io.ReadAll(file)
		if err != nil {
			log.Printf("api/Upload: Could not read request's body, got '%v'", err)
			ctx.Status(http.StatusInternalServerError)
			return
		}

		srcFilePath := path.Join(viper.GetString("directory.source"), fileName)

		if err = os.WriteFile(srcFilePath, fileBytes, utils.UploadFileMode); err != nil {
			log.Printf("api/Upload: Could not write '%s' file, got '%v'", srcFilePath, err)
			ctx.Status(http.StatusInternalServerError)
			return
		}

		if startJob {
			startTracking(ctx, registry, fileName, region)
			return
		}

		ctx.Status(http.StatusCreated)
	})

	//Track starts tracking an uploaded video. The object is given as a region in the first frame.
	//example: POST /api/Track?name=lift.mp4&x=120&y=80&w=40&h=40
	apiRoutes.POST("/Track", func(ctx *gin.Context) {
		videoName := ctx.Query("name")
		if videoName == "" {
			ctx.Status(http.StatusNotAcceptable) //missing url parameter
			return
		}

		region, err := utils.ParseRegion(ctx.Query("x"), ctx.Query("y"), ctx.Query("w"), ctx.Query("h"))
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		srcVideoPath := path.Join(viper.GetString("directory.source"), path.Base(videoName))
		if _, err := os.Stat(srcVideoPath); err != nil {
			if os.IsNotExist(err) {
				ctx.Status(http.StatusNotFound)
			} else {
				ctx.Status(http.StatusInternalServerError)
			}
			return
		}

		startTracking(ctx, registry, path.Base(videoName), region)
	})

	apiRoutes.GET("/Jobs", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, registry.List())
	})

	apiRoutes.GET("/Jobs/:id", func(ctx *gin.Context) {
		if snap, ok := registry.Get(ctx.Param("id")); ok {
			ctx.JSON(http.StatusOK, snap)
		} else {
			ctx.Status(http.StatusNotFound)
		}
	})

	apiRoutes.POST("/Jobs/:id/Cancel", func(ctx *gin.Context) {
		switch err := registry.Cancel(ctx.Param("id")); {
		case err == nil:
			ctx.Status(http.StatusAccepted)
		case errors.Is(err, jobs.ErrJobFinished):
			ctx.Status(http.StatusConflict)
		default:
			ctx.Status(http.StatusNotFound)
		}
	})

	apiRoutes.GET("/Jobs/:id/SpeedChart", func(ctx *gin.Context) {
		writeChart(ctx, registry, "image/png", jobs.WriteSpeedPNG)
	})

	apiRoutes.GET("/Jobs/:id/SpeedChartHTML", func(ctx *gin.Context) {
		writeChart(ctx, registry, "text/html; charset=utf-8", jobs.WriteSpeedHTML)
	})

	return r
}

//startTracking starts a job and answers with its ID, 409 while the video is tracked by another job
func startTracking(ctx *gin.Context, registry *jobs.Registry, videoName string, region image.Rectangle) {
	id, err := registry.Start(videoName, region)
	if err != nil {
		if errors.Is(err, jobs.ErrVideoBusy) {
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Printf("api/Track: Could not start job for '%s', got '%v'", videoName, err)
		ctx.Status(http.StatusInternalServerError)
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"id": id})
}

//writeChart renders a job's chart straight into the response, nothing is stored on disk
func writeChart(ctx *gin.Context, registry *jobs.Registry, contentType string, render func(io.Writer, jobs.Snapshot) error) {
	snap, ok := registry.Get(ctx.Param("id"))
	if !ok {
		ctx.Status(http.StatusNotFound)
		return
	}

	ctx.Header("Content-Type", contentType)
	if err := render(ctx.Writer, snap); err != nil {
		if errors.Is(err, jobs.ErrNoSpeeds) {
			ctx.Status(http.StatusNoContent)
			return
		}
		log.Printf("api/SpeedChart: Could not render chart for job '%s', got '%v'", snap.ID, err)
		ctx.Status(http.StatusInternalServerError)
	}
}
