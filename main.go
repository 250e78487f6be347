package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dicoevent/dicoevent/config"
	"github.com/dicoevent/dicoevent/database"
	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/web"
	"github.com/dicoevent/dicoevent/web/notify"
	"github.com/dicoevent/dicoevent/web/service"

	"github.com/spf13/cobra"
)

func initLogger() {
	level, err := logger.ParseLevel(config.GetLogLevel())
	if err != nil {
		log.Fatal(err)
	}
	logger.InitLogger(level)
}

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())
	initLogger()

	server := web.NewServer()
	if err := server.Start(); err != nil {
		logger.Error("start server err:", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer()
			if err := server.Start(); err != nil {
				logger.Error("restart server err:", err)
				os.Exit(1)
			}
		default:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			logger.CloseLogger()
			return
		}
	}
}

// runWorker consumes email tasks from the broker until interrupted.
func runWorker() {
	initLogger()
	defer logger.CloseLogger()

	url := config.GetNatsURL()
	if url == "" {
		log.Fatal("DICOEVENT_NATS_URL is required to run a worker")
	}
	conn, err := notify.Connect(url, config.GetName()+"-worker")
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	worker := notify.NewWorker(conn, config.GetNatsSubject(), notify.NewHandlerFromConfig())
	if err := worker.Run(ctx); err != nil {
		log.Fatal(err)
	}
	delivered, failed := worker.Stats()
	logger.Infof("Worker stopped, %d delivered, %d failed", delivered, failed)
}

func migrateDb() {
	initLogger()
	db, err := database.Open(config.GetDatabaseConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Migration done!")
}

func createSuperuser(username, email, password string) {
	if username == "" || password == "" {
		log.Fatal("--username and --password are required")
	}
	initLogger()
	db, err := database.Open(config.GetDatabaseConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}
	u, err := database.CreateSuperuser(db, username, service.NormalizeEmail(email), password)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Superuser %s created with id %d\n", u.Username, u.Id)
}

// sendReminders runs a single reminder scan, for use from an external scheduler.
func sendReminders(lookahead time.Duration) {
	initLogger()
	deps, closer, err := web.OpenDeps(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := closer(); err != nil {
			logger.Warning("close deps err:", err)
		}
	}()

	sent, err := service.NewReminderService(deps).SendReminders(context.Background(), time.Now(), lookahead)
	if err != nil {
		logger.Error("reminder scan failed:", err)
		return
	}
	fmt.Printf("Enqueued %d reminders\n", sent)
}

func main() {
	config.LoadEnv()

	var rootCmd = &cobra.Command{
		Use:   config.GetName(),
		Short: "Event management and ticketing API",
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the API server and scheduled jobs",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var workerCmd = &cobra.Command{
		Use:   "worker",
		Short: "Deliver queued emails from the task broker",
		Run: func(cmd *cobra.Command, args []string) {
			runWorker()
		},
	}

	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed roles",
		Run: func(cmd *cobra.Command, args []string) {
			migrateDb()
		},
	}

	var superuserCmd = &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an account that passes every permission check",
		Run: func(cmd *cobra.Command, args []string) {
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			createSuperuser(username, email, password)
		},
	}
	superuserCmd.Flags().String("username", "", "login username")
	superuserCmd.Flags().String("email", "", "email address")
	superuserCmd.Flags().String("password", "", "login password")

	var remindCmd = &cobra.Command{
		Use:   "remind",
		Short: "Enqueue reminders for events starting soon, once",
		Run: func(cmd *cobra.Command, args []string) {
			lookahead, _ := cmd.Flags().GetDuration("lookahead")
			sendReminders(lookahead)
		},
	}
	remindCmd.Flags().Duration("lookahead", config.GetReminderLookahead(), "how far ahead to look for starting events")

	rootCmd.AddCommand(runCmd, workerCmd, migrateCmd, superuserCmd, remindCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
