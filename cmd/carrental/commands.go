package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/langchou/carrental/internal/apperr"
	"github.com/langchou/carrental/internal/models"
	"github.com/langchou/carrental/internal/service"
)

// stdin 批量命令的输入来源
var stdin io.Reader = os.Stdin

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"cars":        {"List available cars (-category, -fuel)", cmdCars},
	"fleet":       {"List every car with its status", cmdFleet},
	"quote":       {"Estimate cost: quote -car ID -hours N", cmdQuote},
	"rent":        {"Book a car as a customer", cmdRent},
	"return":      {"Return a rented car as a customer", cmdReturn},
	"rentals":     {"List a customer's rentals (-active)", cmdRentals},
	"service":     {"Send a car to maintenance (agent)", cmdService},
	"complete":    {"Complete a maintenance record (agent)", cmdComplete},
	"maintenance": {"List maintenance records (agent, -car, -active)", cmdMaintenance},
	"add-car":     {"Add a car to the fleet (agent)", cmdAddCar},
	"add-cars":    {"Add cars from stdin, one Model,Category,FuelType,HourlyRate per line (agent)", cmdAddCars},
	"remove-car":  {"Remove cars from the fleet (agent)", cmdRemoveCar},
	"register":    {"Register a new customer", cmdRegister},
	"login":       {"Check customer or agent credentials", cmdLogin},
	"revenue":     {"Generate a revenue report (agent)", cmdRevenue},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: carrental <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", name, commands[name].summary)
	}
	tw.Flush()
}

// newFlags 子命令参数解析失败时返回 Validation 错误
func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return apperr.Validation(fs.Name(), err.Error())
	}
	return nil
}

// credentials 登录参数
type credentials struct {
	id       *string
	password *string
}

func customerFlags(fs *flag.FlagSet) credentials {
	return credentials{
		id:       fs.String("customer", "", "customer ID"),
		password: fs.String("password", "", "customer password"),
	}
}

func agentFlags(fs *flag.FlagSet) credentials {
	return credentials{
		id:       fs.String("agent", "", "agent ID"),
		password: fs.String("password", "", "agent password"),
	}
}

func (a *app) customer(ctx context.Context, c credentials) (*models.Customer, error) {
	return a.accounts.LoginCustomer(ctx, *c.id, *c.password)
}

func (a *app) agent(ctx context.Context, c credentials) (*models.CompanyAgent, error) {
	return a.accounts.LoginAgent(ctx, *c.id, *c.password)
}

func newTable(header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// ---- 客户命令 ----

func cmdCars(ctx context.Context, a *app, args []string) error {
	fs := newFlags("cars")
	category := fs.String("category", "ALL", "SUV, Sedan, Van or ALL")
	fuel := fs.String("fuel", "ALL", "Dual Motor, Standard Engine, EV or ALL")
	if err := parse(fs, args); err != nil {
		return err
	}

	cars, err := a.rentals.ListAvailableCars(ctx, *category, *fuel)
	if err != nil {
		return err
	}
	if len(cars) == 0 {
		fmt.Println("No cars available for the selected filters.")
		return nil
	}

	tw := newTable("ID", "MODEL", "CATEGORY", "FUEL", "RATE/HR")
	for _, c := range cars {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Model, c.Category, c.FuelType, money(c.HourlyRate))
	}
	return tw.Flush()
}

func cmdFleet(ctx context.Context, a *app, args []string) error {
	fs := newFlags("fleet")
	if err := parse(fs, args); err != nil {
		return err
	}

	cars, err := a.rentals.ListCars(ctx)
	if err != nil {
		return err
	}

	tw := newTable("ID", "MODEL", "CATEGORY", "FUEL", "RATE/HR", "STATUS", "RENTER")
	for _, c := range cars {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Model, c.Category, c.FuelType, money(c.HourlyRate), c.Status, c.RenterID)
	}
	return tw.Flush()
}

func cmdQuote(ctx context.Context, a *app, args []string) error {
	fs := newFlags("quote")
	carID := fs.String("car", "", "car ID")
	hours := fs.Int("hours", 0, "rental hours")
	if err := parse(fs, args); err != nil {
		return err
	}

	car, err := a.rentals.GetCar(ctx, strings.ToUpper(*carID))
	if err != nil {
		return err
	}
	quote, err := a.rentals.EstimateCost(ctx, car.ID, *hours)
	if err != nil {
		return err
	}

	fmt.Printf("Base price: %s\n", money(quote.BasePrice))
	fmt.Printf("Deposit:    %s\n", money(quote.Deposit))
	fmt.Printf("Total:      %s\n", money(quote.Total))
	return nil
}

func cmdRent(ctx context.Context, a *app, args []string) error {
	fs := newFlags("rent")
	creds := customerFlags(fs)
	carID := fs.String("car", "", "car ID")
	hours := fs.Int("hours", 0, "rental hours")
	driver := fs.String("driver", "", "driver name (optional)")
	if err := parse(fs, args); err != nil {
		return err
	}

	customer, err := a.customer(ctx, creds)
	if err != nil {
		return err
	}

	taken, err := a.rentals.IsDriverNameTaken(ctx, customer.ID, *driver)
	if err != nil {
		return err
	}
	if taken {
		return apperr.InvalidState("rent", "Driver name already used in one of your rentals")
	}

	rental, err := a.rentals.ConfirmBooking(ctx, customer.ID, strings.ToUpper(*carID), *driver, *hours)
	if err != nil {
		return err
	}
	// 订单已提交，收据失败只告警
	receipt, err := a.receipt(ctx, rental)
	if err != nil {
		a.logger.Warn("Receipt not issued", zap.String("rental_id", rental.ID), zap.Error(err))
		fmt.Printf("Rental %s confirmed for car %s. Receipt unavailable: %s\n",
			rental.ID, rental.CarID, apperr.MessageOf(err))
		return nil
	}

	fmt.Print(receipt)
	return nil
}

func (a *app) receipt(ctx context.Context, rental *models.Rental) (string, error) {
	car, err := a.rentals.GetCar(ctx, rental.CarID)
	if err != nil {
		return "", err
	}
	return a.rentals.IssueReceipt(ctx, rental, car)
}

func cmdReturn(ctx context.Context, a *app, args []string) error {
	fs := newFlags("return")
	creds := customerFlags(fs)
	carID := fs.String("car", "", "car ID")
	hours := fs.Int("hours", -1, "actual hours used")
	if err := parse(fs, args); err != nil {
		return err
	}

	customer, err := a.customer(ctx, creds)
	if err != nil {
		return err
	}

	id := strings.ToUpper(*carID)
	active, err := a.rentals.CustomerActiveRentals(ctx, customer.ID)
	if err != nil {
		return err
	}
	owns := false
	for _, r := range active {
		if r.CarID == id {
			owns = true
			break
		}
	}
	if !owns {
		return apperr.NotFound("return", "You have no active rental for this car")
	}

	result, err := a.rentals.ProcessReturn(ctx, id, *hours)
	if err != nil {
		return err
	}

	fmt.Println(result.Settlement.Message)
	fmt.Printf("Rental %s completed. Final cost: %s\n", result.Rental.ID, money(result.Settlement.FinalCost))
	return nil
}

func cmdRentals(ctx context.Context, a *app, args []string) error {
	fs := newFlags("rentals")
	creds := customerFlags(fs)
	activeOnly := fs.Bool("active", false, "only active rentals")
	if err := parse(fs, args); err != nil {
		return err
	}

	customer, err := a.customer(ctx, creds)
	if err != nil {
		return err
	}

	var rentals []*models.Rental
	if *activeOnly {
		rentals, err = a.rentals.CustomerActiveRentals(ctx, customer.ID)
	} else {
		rentals, err = a.rentals.CustomerRentals(ctx, customer.ID)
	}
	if err != nil {
		return err
	}
	if len(rentals) == 0 {
		fmt.Println("No rentals found.")
		return nil
	}

	tw := newTable("ID", "CAR", "DRIVER", "START", "EST HRS", "ACT HRS", "COST", "STATUS")
	for _, r := range rentals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.CarID, r.DriverName, r.StartTime.Format(models.TimeLayout),
			r.EstimatedHours, r.ActualHours, money(r.TotalCost), r.Status)
	}
	return tw.Flush()
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags("register")
	name := fs.String("name", "", "customer name")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}

	customer, err := a.accounts.RegisterCustomer(ctx, *name, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s. Your customer ID is %s\n", customer.Name, customer.ID)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	customerID := fs.String("customer", "", "customer ID")
	agentID := fs.String("agent", "", "agent ID")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}

	if *agentID != "" {
		agent, err := a.accounts.LoginAgent(ctx, *agentID, *password)
		if err != nil {
			return err
		}
		fmt.Printf("Welcome, %s (agent %s)\n", agent.Name, agent.ID)
		return nil
	}
	customer, err := a.accounts.LoginCustomer(ctx, *customerID, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Welcome, %s (customer %s)\n", customer.Name, customer.ID)
	return nil
}

// ---- 员工命令 ----

func cmdService(ctx context.Context, a *app, args []string) error {
	fs := newFlags("service")
	creds := agentFlags(fs)
	carID := fs.String("car", "", "car ID")
	tech := fs.String("tech", "", "technician name")
	desc := fs.String("desc", "", "work description")
	if err := parse(fs, args); err != nil {
		return err
	}

	if _, err := a.agent(ctx, creds); err != nil {
		return err
	}
	record, err := a.maintenance.AddMaintenance(ctx, strings.ToUpper(*carID), *tech, *desc)
	if err != nil {
		return err
	}
	fmt.Printf("Maintenance %s started for car %s\n", record.ID, record.CarID)
	return nil
}

func cmdComplete(ctx context.Context, a *app, args []string) error {
	fs := newFlags("complete")
	creds := agentFlags(fs)
	id := fs.String("id", "", "maintenance ID")
	if err := parse(fs, args); err != nil {
		return err
	}

	if _, err := a.agent(ctx, creds); err != nil {
		return err
	}
	record, err := a.maintenance.CompleteMaintenance(ctx, strings.ToUpper(*id))
	if err != nil {
		return err
	}
	fmt.Printf("Maintenance %s completed. Car %s is available again\n", record.ID, record.CarID)
	return nil
}

func cmdMaintenance(ctx context.Context, a *app, args []string) error {
	fs := newFlags("maintenance")
	creds := agentFlags(fs)
	carID := fs.String("car", "", "only this car")
	activeOnly := fs.Bool("active", false, "only in-progress records")
	if err := parse(fs, args); err != nil {
		return err
	}

	if _, err := a.agent(ctx, creds); err != nil {
		return err
	}

	var (
		records []*models.Maintenance
		err     error
	)
	switch {
	case *carID != "":
		records, err = a.maintenance.HistoryForCar(ctx, strings.ToUpper(*carID))
	case *activeOnly:
		records, err = a.maintenance.ListInProgress(ctx)
	default:
		records, err = a.maintenance.ListAll(ctx)
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No maintenance records found.")
		return nil
	}

	tw := newTable("ID", "CAR", "TECHNICIAN", "DATE", "STATUS", "DESCRIPTION")
	for _, m := range records {
		if *carID != "" && *activeOnly && !m.InProgress() {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.CarID, m.Technician, m.Date.Format(models.TimeLayout), m.Status, m.Description)
	}
	return tw.Flush()
}

func cmdAddCar(ctx context.Context, a *app, args []string) error {
	fs := newFlags("add-car")
	creds := agentFlags(fs)
	id := fs.String("id", "", "car ID (empty picks the first free one)")
	model := fs.String("model", "", "car model")
	category := fs.String("category", "", "SUV, Sedan or Van")
	fuel := fs.String("fuel", "", "Dual Motor, Standard Engine or EV")
	rate := fs.String("rate", "", "hourly rate")
	if err := parse(fs, args); err != nil {
		return err
	}

	if _, err := a.agent(ctx, creds); err != nil {
		return err
	}
	hourly, err := decimal.NewFromString(strings.TrimSpace(*rate))
	if err != nil {
		return apperr.Validation("add-car", "Hourly rate must be a number")
	}

	car, err := a.fleet.AddCar(ctx, service.CarInput{
		ID:         *id,
		Model:      *model,
		Category:   models.Category(*category),
		FuelType:   models.FuelType(*fuel),
		HourlyRate: hourly,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Car %s (%s) added\n", car.ID, car.Model)
	return nil
}

func cmdAddCars(ctx context.Context, a *app, args []string) error {
	fs := newFlags("add-cars")
	creds := agentFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	if _, err := a.agent(ctx, creds); err != nil {
		return err
	}

	// 读到 EOF 或单独一行 END 为止
	var lines []string
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), "END") {
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return apperr.Validation("add-cars", fmt.Sprintf("read input: %v", err))
	}

	report, err := a.fleet.AddCars(ctx, lines)
	if err != nil {
		return err
	}

	for _, c := range report.Added {
		fmt.Printf("[SUCCESS] %s created for %s\n", c.ID, c.Model)
	}
	for _, f := range report.Failures {
		fmt.Printf("[FAILED] line %d: %s: %s\n", f.Line, f.Reason, f.Text)
	}
	fmt.Printf("Saved %d cars, %d lines failed validation\n", len(report.Added), len(report.Failures))
	if len(report.Added) == 0 {
		return apperr.Validation("add-cars", "No cars added")
	}
	return nil
}

func cmdRemoveCar(ctx context.Context, a *app, args []string) error {
	fs := newFlags("remove-car")
	creds := agentFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	if _, err := a.agent(ctx, creds); err != nil {
		return err
	}

	// 支持 "C001,C002" 与多个参数两种写法
	var ids []string
	for _, arg := range fs.Args() {
		ids = append(ids, strings.Split(arg, ",")...)
	}
	report, err := a.fleet.RemoveCars(ctx, ids...)
	if err != nil {
		return err
	}

	if len(report.Removed) > 0 {
		fmt.Printf("Removed: %s\n", strings.Join(report.Removed, ", "))
	}
	if len(report.Rented) > 0 {
		fmt.Printf("Skipped (currently rented): %s\n", strings.Join(report.Rented, ", "))
	}
	if len(report.NotFound) > 0 {
		fmt.Printf("Not found: %s\n", strings.Join(report.NotFound, ", "))
	}
	return nil
}

func cmdRevenue(ctx context.Context, a *app, args []string) error {
	fs := newFlags("revenue")
	creds := agentFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	agent, err := a.agent(ctx, creds)
	if err != nil {
		return err
	}
	_, content, err := a.reports.GenerateRevenueReport(ctx, agent)
	if err != nil {
		return err
	}
	fmt.Print(content)
	return nil
}
