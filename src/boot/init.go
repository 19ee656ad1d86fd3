package boot

import (
	"log"
	"time"

	"stays/src/db"
	"stays/src/lib"
	"stays/src/models"
	"stays/src/utils"
)

func InitDb() error {
	d := db.GetDb()
	err := d.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.Booking{},
		&models.Payment{},
		&models.Refund{},
		&models.WebhookEvent{},
	)
	if err != nil {
		log.Printf("Error running migrations: %s\n", err.Error())
		return err
	}
	return nil
}

// InitScheduler starts the background sweep that expires pending payments
// that never got a gateway outcome.
func InitScheduler() error {
	sched, err := lib.GetScheduler()
	if err != nil {
		return err
	}
	_, err = lib.CreateCronJob(func() {
		utils.ExpireStalePayments(time.Hour)
	}, 10*time.Minute)
	if err != nil {
		log.Printf("Error scheduling payment expiry sweep: %s\n", err.Error())
		return err
	}
	sched.Start()
	return nil
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Error shutting down scheduler: %s\n", err.Error())
	}
}
