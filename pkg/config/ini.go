package config

import "gopkg.in/ini.v1"

// Load reads Options from an ini file with a single [can] section, e.g.:
//
//	[can]
//	fifo_size = 16
//	pending_rtr_slots = 8
//	can_fd = true
//	extid = false
//	errors = true
//	tx_ready = false
//
// Any key not present keeps its Default() value.
func Load(path string) (Options, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return Options{}, err
	}
	opts := Default()
	sec := cfg.Section("can")
	opts.FIFOSize = sec.Key("fifo_size").MustInt(opts.FIFOSize)
	opts.PendingRTRSlots = sec.Key("pending_rtr_slots").MustInt(opts.PendingRTRSlots)
	opts.CANFD = sec.Key("can_fd").MustBool(opts.CANFD)
	opts.ExtID = sec.Key("extid").MustBool(opts.ExtID)
	opts.Errors = sec.Key("errors").MustBool(opts.Errors)
	opts.TxReady = sec.Key("tx_ready").MustBool(opts.TxReady)
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
