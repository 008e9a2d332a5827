package main

import (
	"log"

	"github.com/speedtrail/speedtrail/pkg/api"
	"github.com/speedtrail/speedtrail/pkg/jobs"
	"github.com/speedtrail/speedtrail/pkg/utils"
	"github.com/speedtrail/speedtrail/pkg/video"
	"github.com/spf13/viper"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	video.SetDefaults()
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Error: Could not read config file, got '%v'", err)
		}
		log.Printf("No config file found, using defaults")
	}

	//first - create project's data root dir, then the rest of the directories from config file
	if err := utils.EnsureDir(viper.GetString("directory.root")); err != nil {
		log.Fatalf("Error: %v", err)
	}
	for key := range viper.GetStringMapString("directory") {
		if err := utils.EnsureDir(viper.GetString("directory." + key)); err != nil {
			log.Printf("%v", err)
		}
	}

	//fail early on bad tracking configuration instead of on the first job
	opts, err := video.OptionsFromConfig()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	log.Printf("Tracking with '%s', gap policy '%s', speeds in %s", opts.Algorithm, opts.GapPolicy, opts.Calibration.OutputUnit())

	registry := jobs.NewRegistry(video.Track, opts.Calibration)

	r := api.SetRouter(registry)
	if err := r.Run(":" + viper.GetString("http.port")); err != nil {
		log.Fatalf("Error: Got '%v'", err)
	}
}
