package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/notification"
	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
)

func printBanner() {
	figure1 := figure.NewFigure("LUCD", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan("Mining site land-use change dataset builder")
	fmt.Println()
}

func reportPanic(r any) {
	pc, file, line, ok := runtime.Caller(3)
	location := "Unknown location"
	if ok {
		location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
	}

	fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
	fmt.Printf("\033[31mLocation: %s\033[0m\n", location)
	fmt.Printf("\033[31mExiting...\033[0m\n")

	errMessage := fmt.Sprintf("LUCD CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack())
	if err := notification.NewDiscord().SendErrorNotification(context.Background(), errMessage); err != nil {
		fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := 0
	func() {
		defer func() {
			if r := recover(); r != nil {
				reportPanic(r)
				exitCode = 2
			}
		}()
		if err := rootCmd.ExecuteContext(ctx); err != nil {
			exitCode = 1
		}
	}()
	stop()
	os.Exit(exitCode)
}
